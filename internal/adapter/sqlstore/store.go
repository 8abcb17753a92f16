// Package sqlstore persists the arrivals and departures tables to Postgres
// or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Table names.
const (
	ArrivalsTable   = "arrivals"
	DeparturesTable = "departures"
)

// Store writes import tables in a single transaction per run.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the database. SQLite is limited to one open connection.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return New(db, driver, logger), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, driver string, logger *slog.Logger) *Store {
	return &Store{db: db, driver: driver, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sql" }

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PingWithRetry pings until the database answers or attempts run out,
// doubling the wait between attempts from initial up to maxBackoff.
func (s *Store) PingWithRetry(ctx context.Context, attempts int, initial, maxBackoff time.Duration) error {
	attempts = max(attempts, 1)
	backoff := initial

	var err error
	for attempt := 1; ; attempt++ {
		if err = s.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		s.logger.Warn("database not reachable, retrying",
			"driver", s.driver, "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("ping %s after %d attempts: %w", s.driver, attempts, err)
}

// Init creates both tables and their run_id indexes if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	for _, table := range []string{ArrivalsTable, DeparturesTable} {
		if _, err := s.db.ExecContext(ctx, createTableSQL(table)); err != nil {
			return fmt.Errorf("create %s table: %w", table, err)
		}
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s(run_id)`, table, table)
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create %s index: %w", table, err)
		}
	}
	return nil
}

// WriteTables inserts both tables atomically. On any error nothing from the
// run is kept.
func (s *Store) WriteTables(ctx context.Context, runID string, arrivals, departures []domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := s.insert(ctx, tx, ArrivalsTable, runID, arrivals); err != nil {
		return err
	}
	if err := s.insert(ctx, tx, DeparturesTable, runID, departures); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("tables stored", "run_id", runID, "arrivals", len(arrivals), "departures", len(departures))
	return nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, table, runID string, records []domain.Record) error {
	query := s.insertSQL(table)
	for i, rec := range records {
		args, err := rowArgs(runID, rec)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", table, i, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
	}
	return nil
}

// columns is the insert column order: run_id, the known columns, extra.
func columns() []string {
	cols := make([]string, 0, len(domain.KnownColumns)+2)
	cols = append(cols, "run_id")
	cols = append(cols, domain.KnownColumns...)
	return append(cols, "extra")
}

func createTableSQL(table string) string {
	defs := make([]string, 0, len(domain.KnownColumns)+2)
	defs = append(defs, "run_id TEXT NOT NULL")
	for _, c := range domain.KnownColumns {
		if c == domain.ColRequiresManualDeparture {
			defs = append(defs, c+" BOOLEAN NOT NULL DEFAULT FALSE")
			continue
		}
		defs = append(defs, c+" TEXT")
	}
	defs = append(defs, "extra TEXT")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
}

func (s *Store) insertSQL(table string) string {
	cols := columns()
	marks := make([]string, len(cols))
	for i := range cols {
		if s.driver == DriverPostgres {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func rowArgs(runID string, rec domain.Record) ([]any, error) {
	args := make([]any, 0, len(domain.KnownColumns)+2)
	args = append(args, runID)
	for _, c := range domain.KnownColumns {
		if c == domain.ColRequiresManualDeparture {
			args = append(args, rec.RequiresManualDeparture)
			continue
		}
		args = append(args, rec.Cell(c))
	}

	if len(rec.Extra) == 0 {
		return append(args, nil), nil
	}
	extra, err := json.Marshal(rec.Extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra columns: %w", err)
	}
	return append(args, string(extra)), nil
}
