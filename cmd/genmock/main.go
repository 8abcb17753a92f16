// Command genmock generates a reproducible sample flight movement CSV and,
// optionally, the arrivals and departures tables the importer produces for
// it. It runs the actual pipeline package so the expected tables match real
// import behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -rows 200 \
//	  -csv-out data/mock/flights_240426.csv \
//	  -expected-dir data/mock/expected
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/flight-movement-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flight-movement-etl/internal/config"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
	"github.com/couchcryptid/flight-movement-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

var header = []string{
	domain.ColFlightNo, domain.ColCallsign, domain.ColAirline, domain.ColAircraftType,
	domain.ColRoutingCode, domain.ColActualTime, domain.ColScheduleTime,
	domain.ColActualIn, domain.ColActualOut, "gate",
}

type carrier struct {
	code, name string
}

var (
	carriers = []carrier{
		{"AAL", "American Airlines"},
		{"DAL", "Delta Air Lines"},
		{"BAW", "British Airways"},
		{"DLH", "Lufthansa"},
		{"UAE", "Emirates"},
		{"KLM", "KLM Royal Dutch Airlines"},
		{"", ""},
	}
	aircraft = []string{"A320", "A321", "B738", "B77W", "A388", "E190", "B789", ""}
	airports = []string{"KJFK", "EGLL", "EDDF", "OMDB", "LFPG", "SBGR", "HKJK", "RJTT", ""}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rows := flag.Int("rows", 100, "number of rows to generate")
	seed := flag.Uint64("seed", 240426, "random seed")
	csvOut := flag.String("csv-out", "", "output path for the sample CSV")
	expectedDir := flag.String("expected-dir", "", "directory for the expected arrivals/departures tables (optional)")
	rulesPath := flag.String("rules", "", "TOML rules file (defaults built in)")
	flag.Parse()

	if *csvOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -csv-out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed>>1))
	records := make([][]string, 0, *rows+1)
	records = append(records, header)
	for i := range *rows {
		records = append(records, generateRow(rng, i))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := writeFile(*csvOut, buf.Bytes()); err != nil {
		return err
	}
	log.Printf("wrote %d rows: %s", *rows, *csvOut)

	if *expectedDir == "" {
		return nil
	}
	return writeExpected(buf.Bytes(), *expectedDir, *rulesPath)
}

// generateRow mixes the shapes the importer has to handle: actual times,
// schedule-only rows, rows carrying both in and out, rows with nothing to
// classify, bare clock times, and the occasional unparsable value.
func generateRow(rng *rand.Rand, i int) []string {
	c := carriers[rng.IntN(len(carriers))]
	num := 100 + rng.IntN(900)

	flightNo, callsign := "", ""
	if c.code != "" {
		flightNo = fmt.Sprintf("%s%d", c.code[:2], num)
		callsign = fmt.Sprintf("%s%d", c.code, num)
	}

	at := baseDate.Add(time.Duration(rng.IntN(24*60)) * time.Minute)
	row := []string{
		flightNo, callsign, c.name,
		aircraft[rng.IntN(len(aircraft))],
		airports[rng.IntN(len(airports))],
		"", "", "", "",
		fmt.Sprintf("G%d", 1+rng.IntN(40)),
	}

	switch n := rng.IntN(20); {
	case n < 9:
		row[5] = at.Format("2006-01-02 15:04:05")
	case n < 13:
		row[6] = at.Format(time.RFC3339)
	case n < 15:
		row[5] = at.Format("15:04")
	case n < 17:
		row[7] = at.Format("2006-01-02 15:04:05")
		row[8] = at.Add(90 * time.Minute).Format("2006-01-02 15:04:05")
	case n < 19:
		// nothing to classify
	default:
		row[5] = fmt.Sprintf("bad-%d", i)
	}
	return row
}

func writeExpected(data []byte, dir, rulesPath string) error {
	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		return err
	}

	// Fixed clock so bare HH:MM times resolve to the sample date.
	clock := clockwork.NewFakeClockAt(baseDate.Add(6 * time.Hour))
	logger := slog.New(slog.DiscardHandler)
	importer := pipeline.NewImporter(domain.NewClassifier(rules, clock), logger, observability.NewMetricsForTesting())

	batch, err := csvfile.NewReader(bytes.NewReader(data), logger).ReadBatch(context.Background())
	if err != nil {
		return fmt.Errorf("read generated csv: %w", err)
	}
	result, err := importer.Run(context.Background(), batch)
	if err != nil {
		return fmt.Errorf("import generated csv: %w", err)
	}

	for name, records := range map[string][]domain.Record{
		csvfile.ArrivalsFile:   result.Arrivals,
		csvfile.DeparturesFile: result.Departures,
	} {
		var buf bytes.Buffer
		if err := csvfile.WriteTable(&buf, records); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := writeFile(filepath.Join(dir, name), buf.Bytes()); err != nil {
			return err
		}
	}

	summary, err := json.MarshalIndent(result.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "summary.json"), append(summary, '\n')); err != nil {
		return err
	}

	log.Printf("expected: %d arrivals, %d departures, %d warnings -> %s",
		len(result.Arrivals), len(result.Departures), len(result.Summary.Warnings), dir)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
