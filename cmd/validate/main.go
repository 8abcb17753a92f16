// Command validate checks an import run's output for internal consistency:
// the rules file loads, every arrival carries a coherent departure status,
// every departure has an origin, and the summary counts match the tables.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -rules rules.toml \
//	  -run-dir output/<run-id> \
//	  -summary data/mock/expected/summary.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/flight-movement-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flight-movement-etl/internal/config"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rulesPath := flag.String("rules", "", "TOML rules file (defaults built in)")
	runDir := flag.String("run-dir", "", "directory holding arrivals.csv and departures.csv")
	summaryPath := flag.String("summary", "", "summary JSON to cross-check (optional)")
	flag.Parse()

	if *runDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rulesPath, *runDir, *summaryPath); code != 0 {
		os.Exit(code)
	}
}

func run(rulesPath, runDir, summaryPath string) int {
	fmt.Println("=== Flight Import Output Validation ===")
	fmt.Println()

	rulesPhase := &phase{name: "Phase 1: Rules File"}
	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		rulesPhase.errorf("%v", err)
		rules = domain.MustRuleTable(domain.DefaultRules())
	}

	arrivals, err := loadTable(filepath.Join(runDir, csvfile.ArrivalsFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load arrivals: %v\n", err)
		return 1
	}
	departures, err := loadTable(filepath.Join(runDir, csvfile.DeparturesFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load departures: %v\n", err)
		return 1
	}

	phases := []*phase{
		rulesPhase,
		validateArrivals(arrivals, rules),
		validateDepartures(departures),
		validateCrossTable(arrivals, departures),
	}

	if summaryPath != "" {
		summary, err := loadSummary(summaryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
			return 1
		}
		phases = append(phases, validateSummary(summary, arrivals, departures))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d arrivals, %d departures\n", len(arrivals), len(departures))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println("\nAll checks passed.")
	return 0
}

// loadTable reads an output table. A missing file is an empty table since
// the CSV sink skips empty tables.
func loadTable(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return csvfile.NewReader(f, slog.New(slog.DiscardHandler)).ReadBatch(context.Background())
}

func loadSummary(path string) (domain.ImportSummary, error) {
	var s domain.ImportSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

// ── Phase 2: Arrivals ──

func validateArrivals(arrivals []domain.Record, rules *domain.RuleTable) *phase {
	p := &phase{name: "Phase 2: Arrivals Table"}
	for i, rec := range arrivals {
		checkArrival(p, i, rec, rules)
	}
	return p
}

func checkArrival(p *phase, i int, rec domain.Record, rules *domain.RuleTable) {
	pf := func(format string, args ...any) {
		p.errorf("arrival %d (%s): "+format, append([]any{i, rec.Callsign}, args...)...)
	}

	inField, outField := rec.ActualIn, rec.ActualOut
	if !inField.Present() {
		inField, outField = rec.ScheduledIn, rec.ScheduledOut
	}
	if !inField.Present() {
		pf("no actual_in or scheduled_in")
	}

	switch rec.DepartureStatus {
	case domain.StatusAutoCalculated:
		if !outField.Present() {
			pf("AUTO_CALCULATED without a departure time")
		}
		if !rec.TATUsed.Present() || !rec.TATRule.Present() {
			pf("AUTO_CALCULATED without tat_used/tat_rule")
		}
		if _, manual := rules.ManualCarrier(rec.Callsign.String(), rec.FlightNo.String(), rec.Airline.String()); manual {
			pf("manual-entry carrier has a computed departure")
		}
	case domain.StatusPendingManual:
		if !rec.RequiresManualDeparture {
			pf("PENDING_MANUAL_INPUT without requires_manual_departure")
		}
		if !rec.PopupMessage.Present() {
			pf("PENDING_MANUAL_INPUT without popup_message")
		}
		if outField.Present() {
			pf("PENDING_MANUAL_INPUT row has a departure time %q", outField)
		}
	case "":
		// rows that carried both times pass through unenriched
		if !rec.ActualIn.Present() || !rec.ActualOut.Present() {
			pf("no departure_status")
		}
	default:
		pf("unknown departure_status %q", rec.DepartureStatus)
	}
}

// ── Phase 3: Departures ──

func validateDepartures(departures []domain.Record) *phase {
	p := &phase{name: "Phase 3: Departures Table"}
	seen := make(map[string]int, len(departures))
	for i, rec := range departures {
		if !rec.ActualOut.Present() && !rec.ScheduledOut.Present() {
			p.errorf("departure %d (%s): no departure time", i, rec.Callsign)
		}
		if rec.Classification == domain.ClassDeparture && rec.ActualIn.Present() {
			p.errorf("departure %d (%s): synthesized departure keeps actual_in", i, rec.Callsign)
		}

		key := rowKey(rec)
		if j, dup := seen[key]; dup {
			p.errorf("departure %d duplicates departure %d", i, j)
		}
		seen[key] = i
	}
	return p
}

// ── Phase 4: Cross-table ──

func validateCrossTable(arrivals, departures []domain.Record) *phase {
	p := &phase{name: "Phase 4: Arrivals/Departures Consistency"}

	computed := make(map[string]bool)
	for _, a := range arrivals {
		if a.ActualOut.Present() {
			computed[a.Callsign.String()+"|"+a.ActualOut.String()] = true
		}
	}
	for i, d := range departures {
		if d.Classification != domain.ClassDeparture {
			continue
		}
		if !computed[d.Callsign.String()+"|"+d.ActualOut.String()] {
			p.errorf("departure %d (%s): no arrival with actual_out %q", i, d.Callsign, d.ActualOut)
		}
	}
	return p
}

// ── Phase 5: Summary ──

func validateSummary(s domain.ImportSummary, arrivals, departures []domain.Record) *phase {
	p := &phase{name: "Phase 5: Summary Counts"}
	if s.ArrivalsCreated != len(arrivals) {
		p.errorf("arrivals_created %d, table has %d", s.ArrivalsCreated, len(arrivals))
	}
	if s.DeparturesCreated != len(departures) {
		p.errorf("departures_created %d, table has %d", s.DeparturesCreated, len(departures))
	}
	if s.ArrivalsCreated > s.RowsReceived {
		p.errorf("arrivals_created %d exceeds rows_received %d", s.ArrivalsCreated, s.RowsReceived)
	}
	for _, w := range s.Warnings {
		if !strings.HasPrefix(w, "Row ") {
			p.errorf("warning %q has no row prefix", w)
		}
	}
	return p
}

func rowKey(rec domain.Record) string {
	var b strings.Builder
	for _, f := range rec.Fields() {
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
		b.WriteByte(0)
	}
	return b.String()
}
