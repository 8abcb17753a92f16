//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	redisadapter "github.com/couchcryptid/flight-movement-etl/internal/adapter/redis"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
	"github.com/couchcryptid/flight-movement-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisSummaryStore runs an import and looks its summary up in Redis.
func TestRedisSummaryStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	addr := startRedis(ctx, t)

	store, err := redisadapter.New(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p := pipeline.New(newImporter(), nil, discardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithSummaryStore(store),
		pipeline.WithRunIDs(func() string { return "run-redis" }),
	)

	summary, err := p.Process(ctx, sampleSource())
	require.NoError(t, err)

	got, err := store.Get(ctx, "run-redis")
	require.NoError(t, err)
	assert.Equal(t, summary, got)
	assert.Equal(t, []string{
		"Row 4: no arrival or departure time to classify",
		`Row 5: cannot parse actual_time "not-a-time": unsupported time format`,
	}, got.Warnings)

	_, err = store.Get(ctx, "run-missing")
	require.ErrorIs(t, err, domain.ErrSummaryNotFound)
}
