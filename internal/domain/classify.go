package domain

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
)

// clockTimeRe matches a bare wall-clock time such as "08:45" or "8:45".
var clockTimeRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// timestampLayouts are tried in order. Layouts with a zone keep it on output.
// time.Parse accepts fractional seconds after the seconds field even when the
// layout omits them.
var timestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339, true},
	{"2006-01-02 15:04:05Z07:00", true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04", false},
	{"2006-01-02", false},
}

// timestamp is a parsed time cell. Naive timestamps (no zone in the input)
// are held in UTC and formatted without an offset.
type timestamp struct {
	t     time.Time
	zoned bool
}

func (ts timestamp) add(d time.Duration) timestamp {
	return timestamp{t: ts.t.Add(d), zoned: ts.zoned}
}

// String formats the timestamp as ISO-8601, with microseconds only when
// the value has a fractional part.
func (ts timestamp) String() string {
	layout := "2006-01-02T15:04:05"
	if ts.t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if ts.zoned {
		layout += "-07:00"
	}
	return ts.t.Format(layout)
}

// Classifier decides the movement type of a row and fills in the derived
// departure fields.
type Classifier struct {
	rules *RuleTable
	clock clockwork.Clock
}

// NewClassifier creates a Classifier. The clock supplies the processing date
// for bare HH:MM times; pass nil to use the real clock.
func NewClassifier(rules *RuleTable, clock clockwork.Clock) *Classifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Classifier{rules: rules, clock: clock}
}

// Rules returns the rule table the classifier was built with.
func (c *Classifier) Rules() *RuleTable { return c.rules }

// Classify returns the row's classification and an enriched copy of it.
// The input record is never modified. A time cell that cannot be parsed is
// reported as a *ParseError.
func (c *Classifier) Classify(rec Record) (Classification, Record, error) {
	actual, err := c.parseTime(ColActualTime, rec.ActualTime)
	if err != nil {
		return ClassUnknown, rec, err
	}
	scheduled, err := c.parseTime(ColScheduleTime, rec.ScheduleTime)
	if err != nil {
		return ClassUnknown, rec, err
	}

	out := rec.Clone()
	switch {
	case rec.ActualIn.Present() && rec.ActualOut.Present():
		return ClassBoth, out, nil
	case actual != nil:
		c.enrichArrival(&out, *actual, &out.ActualIn, &out.ActualOut)
		return ClassArrival, out, nil
	case scheduled != nil:
		c.enrichArrival(&out, *scheduled, &out.ScheduledIn, &out.ScheduledOut)
		return ClassArrival, out, nil
	default:
		return ClassUnknown, out, nil
	}
}

// enrichArrival stamps the arrival time and either computes the departure
// from the turnaround table or flags the row for manual entry.
func (c *Classifier) enrichArrival(rec *Record, in timestamp, inField, outField *Optional) {
	*inField = Some(in.String())

	if group, ok := c.rules.ManualCarrier(rec.Callsign.String(), rec.FlightNo.String(), rec.Airline.String()); ok {
		rec.RequiresManualDeparture = true
		rec.DepartureStatus = StatusPendingManual
		rec.PopupMessage = Some(fmt.Sprintf("%s flight %s: enter departure time manually", group.Name, rec.Callsign))
		return
	}

	acType := rec.AircraftType.String()
	icao := rec.RoutingCode.String()
	tat := c.rules.Turnaround(acType, icao)

	*outField = Some(in.add(tat).String())
	rec.DepartureStatus = StatusAutoCalculated
	rec.TATUsed = Some(fmt.Sprintf("%.0fmin", tat.Minutes()))
	rec.TATRule = Some(fmt.Sprintf("ICAO:%s, AC:%s, Type:%s", routingInitial(icao), acType, c.rules.Category(acType).Code()))
}

// parseTime returns nil for a missing cell.
func (c *Classifier) parseTime(field string, cell Optional) (*timestamp, error) {
	s, ok := cell.Get()
	if !ok {
		return nil, nil
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return &timestamp{t: t, zoned: l.zoned}, nil
		}
	}
	if clockTimeRe.MatchString(s) {
		if clock, err := time.Parse("15:04", s); err == nil {
			today := c.clock.Now()
			t := time.Date(today.Year(), today.Month(), today.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
			return &timestamp{t: t}, nil
		}
	}
	return nil, &ParseError{Field: field, Value: s}
}

func routingInitial(icao string) string {
	r, size := utf8.DecodeRuneInString(icao)
	if size == 0 {
		return "X"
	}
	return string(r)
}
