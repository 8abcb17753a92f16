package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleTable_IsNarrowbody(t *testing.T) {
	rules := MustRuleTable(DefaultRules())

	tests := []struct {
		name     string
		acType   string
		expected bool
	}{
		{"empty type", "", true},
		{"whitespace type", "   ", true},
		{"A320", "A320", true},
		{"lowercase B738", "b738", true},
		{"ATR variant", "AT76", true},
		{"B777 is widebody", "B777", false},
		{"A388 is widebody", "A388", false},
		{"unknown type", "ZZZZ", false},
		{"prefix only is not a match", "A32", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.IsNarrowbody(tt.acType))
		})
	}
}

func TestRuleTable_IsSpecialRoutingGroup(t *testing.T) {
	rules := MustRuleTable(DefaultRules())

	tests := []struct {
		name     string
		code     string
		expected bool
	}{
		{"empty", "", false},
		{"O prefix", "OABC", true},
		{"lowercase prefix", "omdb", true},
		{"F prefix", "FAOR", true},
		{"K prefix", "KJFK", false},
		{"X prefix", "XABC", false},
		{"only first character counts", "KOMD", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.IsSpecialRoutingGroup(tt.code))
		})
	}
}

func TestRuleTable_Turnaround(t *testing.T) {
	rules := MustRuleTable(DefaultRules())

	tests := []struct {
		name     string
		acType   string
		code     string
		expected time.Duration
	}{
		{"special narrowbody", "A320", "OABC", 60 * time.Minute},
		{"special widebody", "B777", "OMDB", 120 * time.Minute},
		{"other narrowbody", "B738", "KJFK", 120 * time.Minute},
		{"other widebody", "B777", "XABC", 180 * time.Minute},
		{"missing type and code", "", "", 120 * time.Minute},
		{"missing type special code", "", "HECA", 60 * time.Minute},
		{"unknown type", "ZZZZ", "", 180 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.Turnaround(tt.acType, tt.code))
		})
	}
}

func TestRuleTable_TurnaroundIsConfigurable(t *testing.T) {
	cfg := DefaultRules()
	cfg.Turnaround = TurnaroundDurations{
		SpecialNarrowbody: 45 * time.Minute,
		SpecialWidebody:   90 * time.Minute,
		OtherNarrowbody:   75 * time.Minute,
		OtherWidebody:     150 * time.Minute,
	}
	cfg.NarrowbodyTypes = []string{"CRJ9"}
	cfg.SpecialRoutingPrefixes = []string{"k"}

	rules, err := NewRuleTable(cfg)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, rules.Turnaround("crj9", "KJFK"))
	assert.Equal(t, 90*time.Minute, rules.Turnaround("A320", "KJFK"))
	assert.Equal(t, 75*time.Minute, rules.Turnaround("CRJ9", "OMDB"))
	assert.Equal(t, 150*time.Minute, rules.Turnaround("B777", "OMDB"))
}

func TestNewRuleTable_Invalid(t *testing.T) {
	t.Run("zero duration", func(t *testing.T) {
		cfg := DefaultRules()
		cfg.Turnaround.OtherWidebody = 0
		_, err := NewRuleTable(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "positive")
	})

	t.Run("no special prefixes", func(t *testing.T) {
		cfg := DefaultRules()
		cfg.SpecialRoutingPrefixes = nil
		_, err := NewRuleTable(cfg)
		require.Error(t, err)
	})

	t.Run("multi-character prefix", func(t *testing.T) {
		cfg := DefaultRules()
		cfg.SpecialRoutingPrefixes = []string{"OM"}
		_, err := NewRuleTable(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"OM"`)
	})
}

func TestRuleTable_ManualCarrier(t *testing.T) {
	rules := MustRuleTable(DefaultRules())

	tests := []struct {
		name     string
		callsign string
		flightNo string
		airline  string
		expected bool
	}{
		{"callsign code", "UAE123", "", "", true},
		{"lowercase callsign", "uae77", "", "", true},
		{"flight number code", "", "UAE9", "", true},
		{"airline name", "", "", "Emirates Airlines", true},
		{"other carrier", "DAL100", "DL100", "Delta Airlines", false},
		{"empty row", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, ok := rules.ManualCarrier(tt.callsign, tt.flightNo, tt.airline)
			assert.Equal(t, tt.expected, ok)
			if tt.expected {
				assert.Equal(t, "Emirates", group.Name)
			}
		})
	}
}

func TestRuleTable_CategoryAndGroupLabels(t *testing.T) {
	rules := MustRuleTable(DefaultRules())

	assert.Equal(t, "NB", rules.Category("A320").Code())
	assert.Equal(t, "WB", rules.Category("B789").Code())
	assert.Equal(t, "special", rules.RoutingGroup("OMDB").String())
	assert.Equal(t, "other", rules.RoutingGroup("").String())
	assert.Equal(t, "A320", rules.DefaultAircraftType())
}
