// Package redis stores import summaries in Redis so any replica can answer
// a run lookup.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "flight-import:summary:"
	summaryTTL = 24 * time.Hour
)

// ClientInterface is the subset of the Redis client the store uses.
type ClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// SummaryStore keeps import summaries for 24 hours.
type SummaryStore struct {
	client ClientInterface
}

// New connects to Redis at addr and verifies the connection.
func New(ctx context.Context, addr string) (*SummaryStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck // ping error takes precedence
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &SummaryStore{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ClientInterface) *SummaryStore {
	return &SummaryStore{client: client}
}

// Close closes the Redis connection.
func (s *SummaryStore) Close() error {
	return s.client.Close()
}

// Save stores the summary under its run ID.
func (s *SummaryStore) Save(ctx context.Context, summary domain.ImportSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+summary.RunID, data, summaryTTL).Err(); err != nil {
		return fmt.Errorf("store summary %s: %w", summary.RunID, err)
	}
	return nil
}

// Get returns the summary for runID or domain.ErrSummaryNotFound.
func (s *SummaryStore) Get(ctx context.Context, runID string) (domain.ImportSummary, error) {
	data, err := s.client.Get(ctx, keyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ImportSummary{}, domain.ErrSummaryNotFound
	}
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("get summary %s: %w", runID, err)
	}

	var summary domain.ImportSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return domain.ImportSummary{}, fmt.Errorf("unmarshal summary %s: %w", runID, err)
	}
	return summary, nil
}
