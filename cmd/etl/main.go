package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/flight-movement-etl/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/flight-movement-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flight-movement-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flight-movement-etl/internal/adapter/memstore"
	redisadapter "github.com/couchcryptid/flight-movement-etl/internal/adapter/redis"
	"github.com/couchcryptid/flight-movement-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/flight-movement-etl/internal/config"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
	"github.com/couchcryptid/flight-movement-etl/internal/pipeline"
)

// summaryStore is what both the pipeline and the lookup route need.
type summaryStore interface {
	pipeline.SummaryStore
	httpadapter.SummaryLookup
}

// Startup wait for the database sink.
const (
	dbPingAttempts   = 5
	dbPingBackoff    = 200 * time.Millisecond
	dbPingMaxBackoff = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("etl exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()

	sinks, sinkClosers, err := buildSinks(ctx, cfg, logger)
	closers = append(closers, sinkClosers...)
	if err != nil {
		return fmt.Errorf("initialize sinks: %w", err)
	}

	summaries, err := buildSummaryStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize summary store: %w", err)
	}
	if c, ok := summaries.(io.Closer); ok {
		closers = append(closers, c)
	}

	importer := pipeline.NewImporter(
		domain.NewClassifier(rules, nil),
		logger,
		metrics,
		pipeline.WithWorkers(cfg.ImportWorkers),
	)
	p := pipeline.New(importer, sinks, logger, metrics, pipeline.WithSummaryStore(summaries))

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Dependencies{
		Processor:      p,
		Summaries:      summaries,
		Ready:          p,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()
	p.MarkReady(true)

	<-ctx.Done()
	logger.Info("shutting down")
	p.MarkReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
	}

	logger.Info("shutdown complete")
	return nil
}

func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, []io.Closer, error) {
	var (
		sinks   []pipeline.Sink
		closers []io.Closer
	)

	if cfg.SinkEnabled(config.SinkCSV) {
		sinks = append(sinks, csvfile.NewSink(cfg.OutputDir, logger))
		logger.Info("csv sink enabled", "dir", cfg.OutputDir)
	}

	if cfg.SinkEnabled(config.SinkSQL) {
		store, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN, logger)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, store)
		if err := store.PingWithRetry(ctx, dbPingAttempts, dbPingBackoff, dbPingMaxBackoff); err != nil {
			return nil, closers, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, store)
		logger.Info("sql sink enabled", "driver", cfg.DBDriver)
	}

	if cfg.SinkEnabled(config.SinkKafka) {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaArrivalsTopic, cfg.KafkaDeparturesTopic, logger)
		closers = append(closers, writer)
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled",
			"brokers", cfg.KafkaBrokers,
			"arrivals_topic", cfg.KafkaArrivalsTopic,
			"departures_topic", cfg.KafkaDeparturesTopic,
		)
	}

	return sinks, closers, nil
}

func buildSummaryStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (summaryStore, error) {
	if cfg.RedisAddr == "" {
		logger.Info("in-memory summary store", "max_entries", cfg.SummaryCacheSize)
		store, err := memstore.NewSummaryStore(cfg.SummaryCacheSize)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := redisadapter.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	logger.Info("redis summary store", "addr", cfg.RedisAddr)
	return store, nil
}
