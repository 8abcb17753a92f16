// Package memstore keeps recent import summaries in process memory.
package memstore

import (
	"context"
	"fmt"

	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SummaryStore is a bounded in-memory store of import summaries keyed by
// run ID. The least recently used summary is evicted first.
type SummaryStore struct {
	cache *lru.Cache[string, domain.ImportSummary]
}

// NewSummaryStore creates a store holding at most maxEntries summaries.
func NewSummaryStore(maxEntries int) (*SummaryStore, error) {
	cache, err := lru.New[string, domain.ImportSummary](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("summary cache: %w", err)
	}
	return &SummaryStore{cache: cache}, nil
}

// Save stores the summary under its run ID.
func (s *SummaryStore) Save(_ context.Context, summary domain.ImportSummary) error {
	s.cache.Add(summary.RunID, summary)
	return nil
}

// Get returns the summary for runID or domain.ErrSummaryNotFound.
func (s *SummaryStore) Get(_ context.Context, runID string) (domain.ImportSummary, error) {
	summary, ok := s.cache.Get(runID)
	if !ok {
		return domain.ImportSummary{}, domain.ErrSummaryNotFound
	}
	return summary, nil
}

// Len reports how many summaries are held.
func (s *SummaryStore) Len() int {
	return s.cache.Len()
}
