package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
)

// rulesFile mirrors the TOML rule file. Pointer and nil-slice fields are
// left at the built-in default when the key is omitted.
type rulesFile struct {
	DefaultAircraftType    *string  `toml:"default_aircraft_type"`
	SpecialRoutingPrefixes []string `toml:"special_routing_prefixes"`
	NarrowbodyTypes        []string `toml:"narrowbody_types"`

	TurnaroundMinutes struct {
		SpecialNarrowbody *int `toml:"special_narrowbody"`
		SpecialWidebody   *int `toml:"special_widebody"`
		OtherNarrowbody   *int `toml:"other_narrowbody"`
		OtherWidebody     *int `toml:"other_widebody"`
	} `toml:"turnaround_minutes"`

	ManualCarriers []struct {
		Name  string   `toml:"name"`
		Codes []string `toml:"codes"`
		Names []string `toml:"names"`
	} `toml:"manual_carriers"`
}

// LoadRules builds the rule table from a TOML file layered over
// domain.DefaultRules. An empty path returns the defaults.
func LoadRules(path string) (*domain.RuleTable, error) {
	cfg := domain.DefaultRules()
	if path == "" {
		return domain.NewRuleTable(cfg)
	}

	var f rulesFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode rules file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("rules file %s: unknown key %q", path, undecoded[0].String())
	}

	if f.DefaultAircraftType != nil {
		cfg.DefaultAircraftType = *f.DefaultAircraftType
	}
	if f.SpecialRoutingPrefixes != nil {
		cfg.SpecialRoutingPrefixes = f.SpecialRoutingPrefixes
	}
	if f.NarrowbodyTypes != nil {
		cfg.NarrowbodyTypes = f.NarrowbodyTypes
	}

	tat := f.TurnaroundMinutes
	overrideMinutes(&cfg.Turnaround.SpecialNarrowbody, tat.SpecialNarrowbody)
	overrideMinutes(&cfg.Turnaround.SpecialWidebody, tat.SpecialWidebody)
	overrideMinutes(&cfg.Turnaround.OtherNarrowbody, tat.OtherNarrowbody)
	overrideMinutes(&cfg.Turnaround.OtherWidebody, tat.OtherWidebody)

	if f.ManualCarriers != nil {
		cfg.ManualCarriers = make([]domain.CarrierGroup, 0, len(f.ManualCarriers))
		for _, c := range f.ManualCarriers {
			cfg.ManualCarriers = append(cfg.ManualCarriers, domain.CarrierGroup{Name: c.Name, Codes: c.Codes, Names: c.Names})
		}
	}

	rules, err := domain.NewRuleTable(cfg)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

func overrideMinutes(dst *time.Duration, minutes *int) {
	if minutes != nil {
		*dst = time.Duration(*minutes) * time.Minute
	}
}
