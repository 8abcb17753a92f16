package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Source reads one complete batch of rows in their original order.
type Source interface {
	ReadBatch(ctx context.Context) ([]domain.Record, error)
}

// Sink persists the two output tables of a run.
type Sink interface {
	Name() string
	WriteTables(ctx context.Context, runID string, arrivals, departures []domain.Record) error
}

// SummaryStore keeps run summaries for later lookup.
type SummaryStore interface {
	Save(ctx context.Context, summary domain.ImportSummary) error
}

// FatalBatchError means the batch could not be read at all. No summary is
// produced.
type FatalBatchError struct {
	Err error
}

func (e *FatalBatchError) Error() string { return "read batch: " + e.Err.Error() }

func (e *FatalBatchError) Unwrap() error { return e.Err }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSummaryStore records every successful run's summary.
func WithSummaryStore(store SummaryStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithClock replaces the clock used for run durations.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithRunIDs replaces the run ID generator.
func WithRunIDs(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// Pipeline orchestrates the read-import-write cycle for one batch.
type Pipeline struct {
	importer *Importer
	sinks    []Sink
	store    SummaryStore
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	newID    func() string
	ready    atomic.Bool
}

// New creates a Pipeline that writes results to every sink in order.
func New(importer *Importer, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		importer: importer,
		sinks:    sinks,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MarkReady flips the readiness flag once the rule table and sinks are up.
func (p *Pipeline) MarkReady(ready bool) { p.ready.Store(ready) }

// CheckReadiness returns nil once the pipeline accepts imports, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("import pipeline is not ready")
	}
	return nil
}

// Process reads the batch from src, imports it, and writes both tables to
// every sink. A sink failure fails the run: the written tables are not
// authoritative and no summary is returned.
func (p *Pipeline) Process(ctx context.Context, src Source) (domain.ImportSummary, error) {
	runID := p.newID()
	logger := p.logger.With("run_id", runID)
	start := p.clock.Now()

	p.metrics.ImportsInFlight.Inc()
	defer p.metrics.ImportsInFlight.Dec()

	batch, err := src.ReadBatch(ctx)
	if err != nil {
		p.metrics.ImportRuns.WithLabelValues("fatal").Inc()
		logger.Error("read batch failed", "error", err)
		return domain.ImportSummary{}, &FatalBatchError{Err: err}
	}
	p.metrics.RowsReceived.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	logger.Info("import started", "rows", len(batch))

	res, err := p.importer.Run(ctx, batch)
	if err != nil {
		p.metrics.ImportRuns.WithLabelValues("cancelled").Inc()
		logger.Warn("import aborted", "error", err)
		return domain.ImportSummary{}, err
	}
	res.Summary.RunID = runID

	for _, sink := range p.sinks {
		if err := sink.WriteTables(ctx, runID, res.Arrivals, res.Departures); err != nil {
			p.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			p.metrics.ImportRuns.WithLabelValues("sink_error").Inc()
			logger.Error("write tables failed", "sink", sink.Name(), "error", err)
			return domain.ImportSummary{}, fmt.Errorf("write %s tables: %w", sink.Name(), err)
		}
	}

	if p.store != nil {
		if err := p.store.Save(ctx, res.Summary); err != nil {
			logger.Warn("save summary failed", "error", err)
		}
	}

	p.metrics.ArrivalsCreated.Add(float64(res.Summary.ArrivalsCreated))
	p.metrics.DeparturesCreated.Add(float64(res.Summary.DeparturesCreated))
	p.metrics.ImportRuns.WithLabelValues("success").Inc()
	p.metrics.ImportDuration.Observe(p.clock.Since(start).Seconds())

	logger.Info("import complete",
		"rows_received", res.Summary.RowsReceived,
		"arrivals_created", res.Summary.ArrivalsCreated,
		"departures_created", res.Summary.DeparturesCreated,
		"warnings", len(res.Summary.Warnings),
	)
	return res.Summary, nil
}

// BatchSource adapts an in-memory batch to Source.
type BatchSource []domain.Record

// ReadBatch returns the batch as is.
func (b BatchSource) ReadBatch(_ context.Context) ([]domain.Record, error) {
	return b, nil
}
