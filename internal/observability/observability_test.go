package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_Levels(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			logger := NewLoggerTo(io.Discard, tt.in, "json")
			assert.True(t, logger.Enabled(context.Background(), tt.expected))
			assert.False(t, logger.Enabled(context.Background(), tt.expected-1))
		})
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger("warn", "text")
	assert.Same(t, logger, slog.Default())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("import complete", "run_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "import complete", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", "text")

	logger.Debug("row skipped", "row", 3)
	assert.Contains(t, buf.String(), "row=3")
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.RowWarnings.WithLabelValues("parse").Inc()
	m.RowWarnings.WithLabelValues("parse").Inc()
	m.RowsReceived.Add(3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.RowWarnings.WithLabelValues("parse")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RowsReceived), 0)
}
