package domain

import (
	"encoding/json"
	"maps"
	"sort"
	"strconv"
)

// Classification is the movement type assigned to a row.
type Classification string

const (
	ClassArrival   Classification = "arrival"
	ClassDeparture Classification = "departure"
	ClassBoth      Classification = "both"
	ClassUnknown   Classification = "unknown"
)

// DepartureStatus records how a row's departure time was obtained.
type DepartureStatus string

const (
	StatusAutoCalculated DepartureStatus = "AUTO_CALCULATED"
	StatusPendingManual  DepartureStatus = "PENDING_MANUAL_INPUT"
)

// Column names as they appear in the CSV input and output tables.
const (
	ColFlightNo                = "flight_no"
	ColCallsign                = "callsign"
	ColAirline                 = "airline"
	ColAircraftType            = "ac_type"
	ColRoutingCode             = "icao"
	ColActualTime              = "actual_time"
	ColScheduleTime            = "schedule_time"
	ColActualIn                = "actual_in"
	ColActualOut               = "actual_out"
	ColScheduledIn             = "scheduled_in"
	ColScheduledOut            = "scheduled_out"
	ColDepartureStatus         = "departure_status"
	ColTATUsed                 = "tat_used"
	ColTATRule                 = "tat_rule"
	ColRequiresManualDeparture = "requires_manual_departure"
	ColPopupMessage            = "popup_message"
	ColClassification          = "classification"
)

// KnownColumns lists the recognized columns in output order.
var KnownColumns = []string{
	ColFlightNo, ColCallsign, ColAirline, ColAircraftType, ColRoutingCode,
	ColActualTime, ColScheduleTime,
	ColActualIn, ColActualOut, ColScheduledIn, ColScheduledOut,
	ColDepartureStatus, ColTATUsed, ColTATRule,
	ColRequiresManualDeparture, ColPopupMessage, ColClassification,
}

// Record is one flight movement row. The same type carries the raw input
// and, after classification, the derived fields. Columns the importer does
// not recognize pass through untouched in Extra.
type Record struct {
	FlightNo     Optional
	Callsign     Optional
	Airline      Optional
	AircraftType Optional
	RoutingCode  Optional

	ActualTime   Optional
	ScheduleTime Optional
	ActualIn     Optional
	ActualOut    Optional
	ScheduledIn  Optional
	ScheduledOut Optional

	DepartureStatus         DepartureStatus
	TATUsed                 Optional
	TATRule                 Optional
	RequiresManualDeparture bool
	PopupMessage            Optional

	// Classification is only set on departures synthesized from an arrival.
	Classification Classification

	Extra map[string]string
}

// Field is a named output cell.
type Field struct {
	Name  string
	Value string
}

// NewRecord builds a Record from named cells. Unrecognized non-missing
// cells are kept in Extra.
func NewRecord(cells map[string]Optional) Record {
	var r Record
	for name, v := range cells {
		if slot := r.slot(name); slot != nil {
			*slot = v
			continue
		}
		switch name {
		case ColDepartureStatus:
			r.DepartureStatus = DepartureStatus(v.String())
		case ColRequiresManualDeparture:
			r.RequiresManualDeparture, _ = strconv.ParseBool(v.String())
		case ColClassification:
			r.Classification = Classification(v.String())
		default:
			if s, ok := v.Get(); ok {
				if r.Extra == nil {
					r.Extra = make(map[string]string)
				}
				r.Extra[name] = s
			}
		}
	}
	return r
}

// slot returns a pointer to the Optional field backing a column, or nil.
func (r *Record) slot(name string) *Optional {
	switch name {
	case ColFlightNo:
		return &r.FlightNo
	case ColCallsign:
		return &r.Callsign
	case ColAirline:
		return &r.Airline
	case ColAircraftType:
		return &r.AircraftType
	case ColRoutingCode:
		return &r.RoutingCode
	case ColActualTime:
		return &r.ActualTime
	case ColScheduleTime:
		return &r.ScheduleTime
	case ColActualIn:
		return &r.ActualIn
	case ColActualOut:
		return &r.ActualOut
	case ColScheduledIn:
		return &r.ScheduledIn
	case ColScheduledOut:
		return &r.ScheduledOut
	case ColTATUsed:
		return &r.TATUsed
	case ColTATRule:
		return &r.TATRule
	case ColPopupMessage:
		return &r.PopupMessage
	}
	return nil
}

// Cell returns any column, known or extra, as an Optional.
func (r Record) Cell(name string) Optional {
	if slot := r.slot(name); slot != nil {
		return *slot
	}
	switch name {
	case ColDepartureStatus:
		return Some(string(r.DepartureStatus))
	case ColRequiresManualDeparture:
		if r.RequiresManualDeparture {
			return Some("true")
		}
		return None()
	case ColClassification:
		return Some(string(r.Classification))
	}
	if v, ok := r.Extra[name]; ok {
		return Some(v)
	}
	return None()
}

// Get returns the value of any column and whether it is present.
func (r Record) Get(name string) (string, bool) {
	return r.Cell(name).Get()
}

// Fields returns the present cells: known columns in canonical order, then
// extra columns sorted by name.
func (r Record) Fields() []Field {
	fields := make([]Field, 0, len(KnownColumns)+len(r.Extra))
	for _, name := range KnownColumns {
		if v, ok := r.Get(name); ok {
			fields = append(fields, Field{Name: name, Value: v})
		}
	}
	for _, name := range r.extraNames() {
		fields = append(fields, Field{Name: name, Value: r.Extra[name]})
	}
	return fields
}

func (r Record) extraNames() []string {
	names := make([]string, 0, len(r.Extra))
	for name := range r.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTime reports whether any time column carries a value.
func (r Record) HasTime() bool {
	return r.ActualTime.Present() || r.ScheduleTime.Present() ||
		r.ActualIn.Present() || r.ActualOut.Present() ||
		r.ScheduledIn.Present() || r.ScheduledOut.Present()
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	out := r
	out.Extra = maps.Clone(r.Extra)
	return out
}

// MarshalJSON encodes the present cells as a flat object.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(KnownColumns)+len(r.Extra))
	for _, f := range r.Fields() {
		m[f.Name] = f.Value
	}
	if r.RequiresManualDeparture {
		m[ColRequiresManualDeparture] = true
	}
	return json.Marshal(m)
}
