// Package csvfile reads flight movement batches from CSV and writes the
// arrivals and departures tables back out as CSV.
package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// headerAliases maps export-tool headers onto the canonical column names.
// An alias is only applied when the canonical column is absent.
var headerAliases = []struct{ alias, canonical string }{
	{"FlightNumber", domain.ColFlightNo},
	{"ICAO", domain.ColRoutingCode},
	{"Aircraft", domain.ColAircraftType},
	{"Time", domain.ColActualTime},
	{"Airline", domain.ColAirline},
	{"companhia", domain.ColAirline},
	{"Destination", "destination"},
	{"Country", "country"},
	{"TPS", "tps"},
	{"Status", "status"},
}

// naValues are the cell spellings treated as missing.
var naValues = []string{"NA", "NaN", "nan", "<nil>"}

// utf8BOM is the byte order mark spreadsheet exports put before the header.
var utf8BOM = []byte("\ufeff")

// ErrEmptyFile is returned for input with no header row.
var ErrEmptyFile = errors.New("no columns to parse from file")

// Reader loads a whole CSV document as one batch.
type Reader struct {
	r      io.Reader
	logger *slog.Logger
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	return &Reader{r: r, logger: logger}
}

// ReadBatch parses the CSV into records in file order. Every column is read
// as text. A header-only file yields an empty batch. Short rows are padded
// with missing cells and long rows are cut to the header width.
func (rd *Reader) ReadBatch(ctx context.Context) ([]domain.Record, error) {
	br := bufio.NewReader(rd.r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return []domain.Record{}, nil
	}
	rd.fitRows(rows)

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load dataframe: %w", df.Err)
	}

	aliases := rd.resolveAliases(df.Names())

	batch := make([]domain.Record, 0, df.Nrow())
	for _, row := range df.Maps() {
		cells := make(map[string]domain.Optional, len(row)+len(aliases))
		for name, v := range row {
			cells[name] = cell(v)
		}
		for alias, canonical := range aliases {
			cells[canonical] = cells[alias]
		}
		batch = append(batch, domain.NewRecord(cells))
	}
	return batch, nil
}

// fitRows makes every data row as wide as the header.
func (rd *Reader) fitRows(rows [][]string) {
	width := len(rows[0])
	for i := 1; i < len(rows); i++ {
		switch n := len(rows[i]); {
		case n < width:
			rows[i] = append(rows[i], make([]string, width-n)...)
		case n > width:
			rd.logger.Warn("row has more fields than the header, extra fields dropped",
				"row", i-1, "fields", n, "columns", width)
			rows[i] = rows[i][:width]
		}
	}
}

// resolveAliases returns the alias columns to copy, keyed by alias.
func (rd *Reader) resolveAliases(names []string) map[string]string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	out := make(map[string]string)
	for _, a := range headerAliases {
		if !present[a.alias] || present[a.canonical] {
			continue
		}
		present[a.canonical] = true
		out[a.alias] = a.canonical
		rd.logger.Info("mapped column", "from", a.alias, "to", a.canonical)
	}
	return out
}

func cell(v any) domain.Optional {
	switch s := v.(type) {
	case nil:
		return domain.None()
	case string:
		return domain.Some(s)
	default:
		return domain.Some(fmt.Sprint(s))
	}
}
