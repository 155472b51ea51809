package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/embed"
)

// MemoryStore is an in-memory QueryStore for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []core.QueryRecord
	results map[string]core.StoredResult
	byHash  map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]core.StoredResult),
		byHash:  make(map[string]int),
	}
}

// Append stores a query record with its result. Appending a hash that
// already exists keeps the original record untouched.
func (s *MemoryStore) Append(_ context.Context, rec core.QueryRecord, res core.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[rec.QueryHash]; exists {
		return nil
	}
	s.byHash[rec.QueryHash] = len(s.records)
	s.records = append(s.records, rec)
	s.results[rec.ID] = res
	return nil
}

// NearestNeighbors returns the k stored queries closest to the
// embedding by cosine similarity, best first.
func (s *MemoryStore) NearestNeighbors(_ context.Context, embedding []float32, k int) ([]core.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	neighbors := make([]core.Neighbor, 0, len(s.records))
	for _, rec := range s.records {
		neighbors = append(neighbors, core.Neighbor{
			Record:     rec,
			Similarity: embed.Cosine(embedding, rec.Embedding),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// FindExact returns the record whose query hash matches, or nil.
func (s *MemoryStore) FindExact(_ context.Context, queryHash string) (*core.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byHash[queryHash]
	if !ok {
		return nil, nil
	}
	rec := s.records[idx]
	return &rec, nil
}

// ResultFor returns the stored result for a query ID, or nil.
func (s *MemoryStore) ResultFor(_ context.Context, queryID string) (*core.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.results[queryID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// Count returns the number of stored queries.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
