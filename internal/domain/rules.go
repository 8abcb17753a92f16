package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// AircraftCategory is the size class used to pick a turnaround duration.
type AircraftCategory int

const (
	Narrowbody AircraftCategory = iota
	Widebody
)

// Code returns the short label used in rule traces.
func (c AircraftCategory) Code() string {
	if c == Widebody {
		return "WB"
	}
	return "NB"
}

// RoutingGroup classifies the counterpart airport by the first letter of
// its ICAO code.
type RoutingGroup int

const (
	RoutingOther RoutingGroup = iota
	RoutingSpecial
)

func (g RoutingGroup) String() string {
	if g == RoutingSpecial {
		return "special"
	}
	return "other"
}

// TurnaroundDurations is the four-cell turnaround table.
type TurnaroundDurations struct {
	SpecialNarrowbody time.Duration
	SpecialWidebody   time.Duration
	OtherNarrowbody   time.Duration
	OtherWidebody     time.Duration
}

// CarrierGroup names airlines whose departures must be entered by an
// operator instead of being computed.
type CarrierGroup struct {
	Name  string
	Codes []string // matched inside callsign and flight number
	Names []string // matched inside the airline name
}

// RuleConfig holds the tunable inputs of a RuleTable.
type RuleConfig struct {
	Turnaround             TurnaroundDurations
	NarrowbodyTypes        []string
	SpecialRoutingPrefixes []string
	ManualCarriers         []CarrierGroup
	DefaultAircraftType    string
}

// DefaultRules returns the stock rule configuration.
func DefaultRules() RuleConfig {
	return RuleConfig{
		Turnaround: TurnaroundDurations{
			SpecialNarrowbody: 60 * time.Minute,
			SpecialWidebody:   120 * time.Minute,
			OtherNarrowbody:   120 * time.Minute,
			OtherWidebody:     180 * time.Minute,
		},
		NarrowbodyTypes: []string{
			"B722", "B731", "B732", "B733", "B734", "B735", "B736", "B737", "B738", "B739", "B73X",
			"A318", "A319", "A320", "A321", "E170", "E175", "E190", "E195",
			"MD81", "MD82", "MD83", "MD86", "MD87", "MD88", "MD89", "MD90",
			"AT72", "AT75", "AT76", "AT42", "AT43", "AT45", "AT46",
			"E110", "E120", "E135", "E140", "E145", "L410",
		},
		SpecialRoutingPrefixes: []string{"O", "H", "V", "L", "U", "G", "D", "E", "F"},
		ManualCarriers: []CarrierGroup{
			{Name: "Emirates", Codes: []string{"UAE"}, Names: []string{"EMIRATES"}},
		},
		DefaultAircraftType: "A320",
	}
}

// RuleTable answers turnaround and carrier questions. It is immutable after
// construction and safe for concurrent use.
type RuleTable struct {
	durations      TurnaroundDurations
	narrowbody     map[string]struct{}
	specialPrefix  map[rune]struct{}
	manualCarriers []CarrierGroup
	defaultType    string
}

// NewRuleTable validates cfg and builds a RuleTable from it.
func NewRuleTable(cfg RuleConfig) (*RuleTable, error) {
	d := cfg.Turnaround
	if d.SpecialNarrowbody <= 0 || d.SpecialWidebody <= 0 || d.OtherNarrowbody <= 0 || d.OtherWidebody <= 0 {
		return nil, errors.New("turnaround durations must be positive")
	}
	if len(cfg.SpecialRoutingPrefixes) == 0 {
		return nil, errors.New("at least one special routing prefix is required")
	}

	t := &RuleTable{
		durations:     d,
		narrowbody:    make(map[string]struct{}, len(cfg.NarrowbodyTypes)),
		specialPrefix: make(map[rune]struct{}, len(cfg.SpecialRoutingPrefixes)),
		defaultType:   strings.TrimSpace(cfg.DefaultAircraftType),
	}
	for _, ac := range cfg.NarrowbodyTypes {
		t.narrowbody[strings.ToUpper(strings.TrimSpace(ac))] = struct{}{}
	}
	for _, p := range cfg.SpecialRoutingPrefixes {
		r, size := utf8.DecodeRuneInString(strings.TrimSpace(p))
		if size == 0 || utf8.RuneCountInString(strings.TrimSpace(p)) != 1 {
			return nil, fmt.Errorf("special routing prefix %q must be a single character", p)
		}
		t.specialPrefix[unicode.ToUpper(r)] = struct{}{}
	}
	for _, g := range cfg.ManualCarriers {
		t.manualCarriers = append(t.manualCarriers, CarrierGroup{
			Name:  g.Name,
			Codes: upperAll(g.Codes),
			Names: upperAll(g.Names),
		})
	}
	return t, nil
}

// MustRuleTable is NewRuleTable for configurations known to be valid.
func MustRuleTable(cfg RuleConfig) *RuleTable {
	t, err := NewRuleTable(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultAircraftType is the type assumed for rows that name none.
func (t *RuleTable) DefaultAircraftType() string { return t.defaultType }

// IsNarrowbody reports whether acType is in the narrowbody reference set.
// A missing type is treated as narrowbody.
func (t *RuleTable) IsNarrowbody(acType string) bool {
	acType = strings.ToUpper(strings.TrimSpace(acType))
	if acType == "" {
		return true
	}
	_, ok := t.narrowbody[acType]
	return ok
}

// Category returns the aircraft category for acType.
func (t *RuleTable) Category(acType string) AircraftCategory {
	if t.IsNarrowbody(acType) {
		return Narrowbody
	}
	return Widebody
}

// IsSpecialRoutingGroup reports whether the routing code's first character
// is in the special set. Empty codes are never special.
func (t *RuleTable) IsSpecialRoutingGroup(routingCode string) bool {
	r, size := utf8.DecodeRuneInString(strings.TrimSpace(routingCode))
	if size == 0 {
		return false
	}
	_, ok := t.specialPrefix[unicode.ToUpper(r)]
	return ok
}

// RoutingGroup returns the routing group for routingCode.
func (t *RuleTable) RoutingGroup(routingCode string) RoutingGroup {
	if t.IsSpecialRoutingGroup(routingCode) {
		return RoutingSpecial
	}
	return RoutingOther
}

// Turnaround returns the minimum ground time for the aircraft type and
// routing code. It never fails: unknown inputs fall into a table cell.
func (t *RuleTable) Turnaround(acType, routingCode string) time.Duration {
	narrow := t.IsNarrowbody(acType)
	if t.IsSpecialRoutingGroup(routingCode) {
		if narrow {
			return t.durations.SpecialNarrowbody
		}
		return t.durations.SpecialWidebody
	}
	if narrow {
		return t.durations.OtherNarrowbody
	}
	return t.durations.OtherWidebody
}

// ManualCarrier returns the carrier group the row belongs to when its
// departure must be entered by hand.
func (t *RuleTable) ManualCarrier(callsign, flightNo, airline string) (CarrierGroup, bool) {
	callsign = strings.ToUpper(callsign)
	flightNo = strings.ToUpper(flightNo)
	airline = strings.ToUpper(airline)
	for _, g := range t.manualCarriers {
		for _, code := range g.Codes {
			if strings.Contains(callsign, code) || strings.Contains(flightNo, code) {
				return g, true
			}
		}
		for _, name := range g.Names {
			if strings.Contains(airline, name) {
				return g, true
			}
		}
	}
	return CarrierGroup{}, false
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
