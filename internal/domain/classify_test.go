package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArrival = "2024-06-01T08:00:00"

func newTestClassifier() *Classifier {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 23, 15, 0, 0, time.UTC))
	return NewClassifier(MustRuleTable(DefaultRules()), clock)
}

func TestClassify_ArrivalAutoCalculated(t *testing.T) {
	c := newTestClassifier()
	raw := Record{
		Callsign:     Some("DAL100"),
		AircraftType: Some("A320"),
		RoutingCode:  Some("OABC"),
		ActualTime:   Some(testArrival),
	}

	class, out, err := c.Classify(raw)
	require.NoError(t, err)

	assert.Equal(t, ClassArrival, class)
	assert.Equal(t, testArrival, out.ActualIn.String())
	assert.Equal(t, "2024-06-01T09:00:00", out.ActualOut.String())
	assert.Equal(t, StatusAutoCalculated, out.DepartureStatus)
	assert.Equal(t, "60min", out.TATUsed.String())
	assert.Equal(t, "ICAO:O, AC:A320, Type:NB", out.TATRule.String())
	assert.False(t, out.RequiresManualDeparture)
	assert.False(t, out.PopupMessage.Present())

	// The input record is left untouched.
	assert.False(t, raw.ActualIn.Present())
	assert.False(t, raw.ActualOut.Present())
}

func TestClassify_WidebodyOtherRouting(t *testing.T) {
	c := newTestClassifier()

	class, out, err := c.Classify(Record{
		AircraftType: Some("B777"),
		RoutingCode:  Some("XABC"),
		ActualTime:   Some(testArrival),
	})
	require.NoError(t, err)

	assert.Equal(t, ClassArrival, class)
	assert.Equal(t, "2024-06-01T11:00:00", out.ActualOut.String())
	assert.Equal(t, "180min", out.TATUsed.String())
	assert.Equal(t, "ICAO:X, AC:B777, Type:WB", out.TATRule.String())
}

func TestClassify_MissingTypeAndRouting(t *testing.T) {
	c := newTestClassifier()

	_, out, err := c.Classify(Record{ActualTime: Some(testArrival)})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01T10:00:00", out.ActualOut.String())
	assert.Equal(t, "ICAO:X, AC:, Type:NB", out.TATRule.String())
}

func TestClassify_ManualCarrier(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name string
		rec  Record
	}{
		{"callsign", Record{Callsign: Some("UAE123"), ActualTime: Some(testArrival)}},
		{"flight number", Record{Callsign: Some("X1"), FlightNo: Some("uae123"), ActualTime: Some(testArrival)}},
		{"airline", Record{Callsign: Some("EK1"), Airline: Some("Emirates"), ActualTime: Some(testArrival)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, out, err := c.Classify(tt.rec)
			require.NoError(t, err)

			assert.Equal(t, ClassArrival, class)
			assert.Equal(t, testArrival, out.ActualIn.String())
			assert.False(t, out.ActualOut.Present(), "manual carriers never get a computed departure")
			assert.True(t, out.RequiresManualDeparture)
			assert.Equal(t, StatusPendingManual, out.DepartureStatus)
			assert.Contains(t, out.PopupMessage.String(), tt.rec.Callsign.String())
			assert.False(t, out.TATUsed.Present())
		})
	}
}

func TestClassify_Both(t *testing.T) {
	c := newTestClassifier()
	raw := Record{
		Callsign:  Some("ABY125"),
		ActualIn:  Some("2024-06-01T08:00:00"),
		ActualOut: Some("2024-06-01T08:45:00"),
	}

	class, out, err := c.Classify(raw)
	require.NoError(t, err)

	assert.Equal(t, ClassBoth, class)
	assert.Equal(t, raw.ActualIn, out.ActualIn)
	assert.Equal(t, raw.ActualOut, out.ActualOut)
	assert.Empty(t, out.DepartureStatus)
}

func TestClassify_ReclassifyIsIdempotent(t *testing.T) {
	c := newTestClassifier()

	class, first, err := c.Classify(Record{AircraftType: Some("A320"), ActualTime: Some(testArrival)})
	require.NoError(t, err)
	require.Equal(t, ClassArrival, class)

	class, second, err := c.Classify(first)
	require.NoError(t, err)
	assert.Equal(t, ClassBoth, class)
	assert.Equal(t, first.ActualIn, second.ActualIn)
	assert.Equal(t, first.ActualOut, second.ActualOut)
}

func TestClassify_ScheduleTime(t *testing.T) {
	c := newTestClassifier()

	t.Run("computes scheduled departure", func(t *testing.T) {
		class, out, err := c.Classify(Record{
			AircraftType: Some("A320"),
			RoutingCode:  Some("KJFK"),
			ScheduleTime: Some("2024-06-01 10:30"),
		})
		require.NoError(t, err)

		assert.Equal(t, ClassArrival, class)
		assert.Equal(t, "2024-06-01T10:30:00", out.ScheduledIn.String())
		assert.Equal(t, "2024-06-01T12:30:00", out.ScheduledOut.String())
		assert.False(t, out.ActualIn.Present())
		assert.False(t, out.ActualOut.Present())
	})

	t.Run("actual time wins over schedule time", func(t *testing.T) {
		_, out, err := c.Classify(Record{
			ActualTime:   Some(testArrival),
			ScheduleTime: Some("2024-06-01T07:50:00"),
		})
		require.NoError(t, err)

		assert.True(t, out.ActualIn.Present())
		assert.False(t, out.ScheduledIn.Present())
	})

	t.Run("manual carrier on schedule", func(t *testing.T) {
		_, out, err := c.Classify(Record{
			Callsign:     Some("UAE9"),
			ScheduleTime: Some("2024-06-01T07:50:00"),
		})
		require.NoError(t, err)

		assert.Equal(t, "2024-06-01T07:50:00", out.ScheduledIn.String())
		assert.False(t, out.ScheduledOut.Present())
		assert.True(t, out.RequiresManualDeparture)
	})
}

func TestClassify_Unknown(t *testing.T) {
	c := newTestClassifier()

	class, out, err := c.Classify(Record{Callsign: Some("ABC1"), Extra: map[string]string{"gate": "A1"}})
	require.NoError(t, err)

	assert.Equal(t, ClassUnknown, class)
	assert.Equal(t, "A1", out.Extra["gate"])
	assert.Empty(t, out.DepartureStatus)
}

func TestClassify_TimeFormats(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"iso seconds", "2024-06-01T08:00:00", "2024-06-01T08:00:00"},
		{"iso minutes", "2024-06-01T08:00", "2024-06-01T08:00:00"},
		{"space separator", "2024-06-01 08:00:00", "2024-06-01T08:00:00"},
		{"fractional seconds", "2024-06-01T08:00:00.5", "2024-06-01T08:00:00.500000"},
		{"with offset", "2024-06-01T08:00:00+04:00", "2024-06-01T08:00:00+04:00"},
		{"utc designator", "2024-06-01T08:00:00Z", "2024-06-01T08:00:00+00:00"},
		{"date only", "2024-06-01", "2024-06-01T00:00:00"},
		{"bare clock time uses processing date", "08:00", "2024-06-01T08:00:00"},
		{"single digit hour", "7:05", "2024-06-01T07:05:00"},
		{"surrounding whitespace", "  08:00  ", "2024-06-01T08:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := c.Classify(Record{ActualTime: Some(tt.input)})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.ActualIn.String())
		})
	}
}

func TestClassify_ParseError(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name  string
		rec   Record
		field string
		value string
	}{
		{"garbage actual time", Record{ActualTime: Some("not-a-time")}, ColActualTime, "not-a-time"},
		{"out of range clock", Record{ActualTime: Some("25:00")}, ColActualTime, "25:00"},
		{"three part clock", Record{ActualTime: Some("08:00:00")}, ColActualTime, "08:00:00"},
		{"garbage schedule time", Record{ScheduleTime: Some("soon")}, ColScheduleTime, "soon"},
		{
			"bad actual time on a complete row",
			Record{ActualTime: Some("late"), ActualIn: Some(testArrival), ActualOut: Some(testArrival)},
			ColActualTime, "late",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, _, err := c.Classify(tt.rec)
			require.Error(t, err)
			assert.Equal(t, ClassUnknown, class)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
			assert.Equal(t, tt.value, perr.Value)
			assert.Contains(t, err.Error(), tt.value)
		})
	}
}

func TestNewClassifier_NilClockUsesRealTime(t *testing.T) {
	c := NewClassifier(MustRuleTable(DefaultRules()), nil)

	_, out, err := c.Classify(Record{ActualTime: Some("06:30")})
	require.NoError(t, err)

	_, err = time.Parse("2006-01-02T15:04:05", out.ActualIn.String())
	require.NoError(t, err)
	assert.Contains(t, out.ActualIn.String(), "T06:30:00")
}
