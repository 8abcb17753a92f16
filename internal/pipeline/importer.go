package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
)

// Warning kinds used as the metrics label.
const (
	warnParse        = "parse"
	warnValidation   = "validation"
	warnUnclassified = "unclassified"
)

// Result is the output of one import pass.
type Result struct {
	Arrivals   []domain.Record
	Departures []domain.Record
	Summary    domain.ImportSummary
}

// Importer defaults, classifies and partitions a batch of rows.
type Importer struct {
	classifier *domain.Classifier
	required   []string
	workers    int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithWorkers fans row classification out over n goroutines. Values below 2
// keep the sequential loop.
func WithWorkers(n int) ImporterOption {
	return func(im *Importer) { im.workers = n }
}

// WithRequiredFields rejects rows missing any of the named columns after
// defaulting.
func WithRequiredFields(fields ...string) ImporterOption {
	return func(im *Importer) { im.required = fields }
}

// NewImporter creates an Importer around a classifier.
func NewImporter(classifier *domain.Classifier, logger *slog.Logger, metrics *observability.Metrics, opts ...ImporterOption) *Importer {
	im := &Importer{
		classifier: classifier,
		workers:    1,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// rowOutcome is everything one row contributes to the result. Each row owns
// its slot, so parallel workers never share an accumulator.
type rowOutcome struct {
	arrival    *domain.Record
	departures []domain.Record
	warning    string
}

// Run processes the batch. A bad row becomes a warning and never aborts the
// batch. If ctx is cancelled Run stops taking rows and returns ctx.Err()
// with no partial result.
func (im *Importer) Run(ctx context.Context, batch []domain.Record) (Result, error) {
	outcomes := make([]rowOutcome, len(batch))

	if im.workers > 1 && len(batch) > 1 {
		im.runParallel(ctx, batch, outcomes)
	} else {
		for idx, rec := range batch {
			if ctx.Err() != nil {
				break
			}
			outcomes[idx] = im.processRow(idx, rec)
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Summary: domain.ImportSummary{
			RowsReceived: len(batch),
			Warnings:     []string{},
		},
	}
	for _, o := range outcomes {
		if o.warning != "" {
			res.Summary.Warnings = append(res.Summary.Warnings, o.warning)
		}
		if o.arrival != nil {
			res.Arrivals = append(res.Arrivals, *o.arrival)
		}
		res.Departures = append(res.Departures, o.departures...)
	}
	res.Departures = dedupe(res.Departures)

	res.Summary.ArrivalsCreated = len(res.Arrivals)
	res.Summary.DeparturesCreated = len(res.Departures)
	return res, nil
}

func (im *Importer) runParallel(ctx context.Context, batch []domain.Record, outcomes []rowOutcome) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	for range min(im.workers, len(batch)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = im.processRow(idx, batch[idx])
			}
		}()
	}

feed:
	for idx := range batch {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()
}

func (im *Importer) processRow(idx int, raw domain.Record) rowOutcome {
	rec := im.applyDefaults(idx, raw)

	if err := im.validate(rec); err != nil {
		return im.warn(idx, warnValidation, err)
	}

	class, enriched, err := im.classifier.Classify(rec)
	if err != nil {
		return im.warn(idx, warnParse, err)
	}

	var out rowOutcome
	switch class {
	case domain.ClassArrival:
		out.arrival = &enriched
		if enriched.ActualOut.Present() {
			dep := enriched.Clone()
			dep.ActualIn = domain.None()
			dep.Classification = domain.ClassDeparture
			out.departures = append(out.departures, dep)
		}
	case domain.ClassBoth:
		out.arrival = &enriched
		out.departures = append(out.departures, enriched)
	case domain.ClassDeparture:
		out.departures = append(out.departures, enriched)
	default:
		return im.warn(idx, warnUnclassified, "no arrival or departure time to classify")
	}

	if enriched.DepartureStatus == domain.StatusAutoCalculated {
		rules := im.classifier.Rules()
		acType := enriched.AircraftType.String()
		icao := enriched.RoutingCode.String()
		im.metrics.TurnaroundRules.WithLabelValues(rules.RoutingGroup(icao).String(), rules.Category(acType).Code()).Inc()
	}
	return out
}

// applyDefaults fills identity fields so classification never blocks on
// them. Time fields are never defaulted.
func (im *Importer) applyDefaults(idx int, rec domain.Record) domain.Record {
	if !rec.FlightNo.Present() {
		rec.FlightNo = domain.Some(fmt.Sprintf("FLT%d", idx+1000))
	}
	if !rec.Callsign.Present() {
		if airline, ok := rec.Airline.Get(); ok {
			rec.Callsign = domain.Some(airlineInitials(airline) + rec.FlightNo.String())
		} else {
			rec.Callsign = domain.Some(fmt.Sprintf("AUTO_CALL_%d", idx))
		}
	}
	if !rec.AircraftType.Present() {
		rec.AircraftType = domain.Some(im.classifier.Rules().DefaultAircraftType())
	}
	return rec
}

func (im *Importer) validate(rec domain.Record) error {
	for _, field := range im.required {
		if _, ok := rec.Get(field); !ok {
			return &domain.ValidationError{Field: field}
		}
	}
	return nil
}

func (im *Importer) warn(idx int, kind string, msg any) rowOutcome {
	w := domain.RowWarning(idx, msg)
	im.logger.Warn("row skipped", "row", idx, "kind", kind, "warning", w)
	im.metrics.RowWarnings.WithLabelValues(kind).Inc()
	return rowOutcome{warning: w}
}

// airlineInitials returns the upper-cased first letters of up to three
// words of the airline name.
func airlineInitials(airline string) string {
	words := strings.Fields(airline)
	if len(words) > 3 {
		words = words[:3]
	}
	var b strings.Builder
	for _, word := range words {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// dedupe drops exact duplicates across all fields, keeping the first
// occurrence.
func dedupe(records []domain.Record) []domain.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		key := recordKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func recordKey(rec domain.Record) string {
	var b strings.Builder
	for _, f := range rec.Fields() {
		b.WriteString(f.Name)
		b.WriteByte(0x1f)
		b.WriteString(f.Value)
		b.WriteByte(0x1e)
	}
	return b.String()
}
