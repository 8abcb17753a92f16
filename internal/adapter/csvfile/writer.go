package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
)

// Table file names inside a run directory.
const (
	ArrivalsFile   = "arrivals.csv"
	DeparturesFile = "departures.csv"
)

// Sink writes each run's tables to <dir>/<runID>/.
type Sink struct {
	dir    string
	logger *slog.Logger
}

// NewSink creates a Sink rooted at dir.
func NewSink(dir string, logger *slog.Logger) *Sink {
	return &Sink{dir: dir, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Sink) Name() string { return "csv" }

// WriteTables writes arrivals.csv and departures.csv. Empty tables produce
// no file.
func (s *Sink) WriteTables(ctx context.Context, runID string, arrivals, departures []domain.Record) error {
	runDir := filepath.Join(s.dir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	for _, t := range []struct {
		file    string
		records []domain.Record
	}{
		{ArrivalsFile, arrivals},
		{DeparturesFile, departures},
	} {
		if len(t.records) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(runDir, t.file)
		if err := writeFile(path, t.records); err != nil {
			return err
		}
		s.logger.Debug("table written", "path", path, "rows", len(t.records))
	}
	return nil
}

func writeFile(path string, records []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteTable(f, records); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteTable writes records as CSV. The header is the union of columns
// across all records: known columns first in canonical order, then extras
// sorted by name.
func WriteTable(w io.Writer, records []domain.Record) error {
	header := Columns(records)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, name := range header {
			row[i], _ = rec.Get(name)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Columns returns the ordered union of populated columns across records.
func Columns(records []domain.Record) []string {
	seen := make(map[string]bool)
	var extras []string
	for _, rec := range records {
		for _, f := range rec.Fields() {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			if !slices.Contains(domain.KnownColumns, f.Name) {
				extras = append(extras, f.Name)
			}
		}
	}

	cols := make([]string, 0, len(seen))
	for _, name := range domain.KnownColumns {
		if seen[name] {
			cols = append(cols, name)
		}
	}
	slices.Sort(extras)
	return append(cols, extras...)
}
