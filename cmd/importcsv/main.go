// Command importcsv runs one flight movement import from a local CSV file,
// writes the arrivals and departures tables as CSV, and prints the import
// summary as JSON.
//
// Usage:
//
//	go run ./cmd/importcsv -out output -rules rules.toml flights.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flight-movement-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flight-movement-etl/internal/config"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
	"github.com/couchcryptid/flight-movement-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "importcsv: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rulesPath := flag.String("rules", "", "TOML rules file (defaults built in)")
	outDir := flag.String("out", "output", "directory for the arrivals and departures tables")
	workers := flag.Int("workers", 1, "rows classified concurrently")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected exactly one CSV file argument")
	}

	logger := observability.NewLoggerTo(os.Stderr, *logLevel, "text")
	metrics := observability.NewMetrics()

	rules, err := config.LoadRules(*rulesPath)
	if err != nil {
		return err
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importer := pipeline.NewImporter(domain.NewClassifier(rules, nil), logger, metrics, pipeline.WithWorkers(*workers))
	p := pipeline.New(importer, []pipeline.Sink{csvfile.NewSink(*outDir, logger)}, logger, metrics)

	summary, err := p.Process(ctx, csvfile.NewReader(f, logger))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
