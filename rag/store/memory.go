package store

import (
	"context"
	"sync"

	"github.com/smallnest/ragrouter/rag"
	"github.com/smallnest/ragrouter/rag/store/internal/scan"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]int
	order   []rag.Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]int)}
}

// Upsert implements rag.VectorStore.
func (s *MemoryStore) Upsert(ctx context.Context, records []rag.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		if i, ok := s.records[r.ID]; ok {
			s.order[i] = r
			continue
		}
		s.records[r.ID] = len(s.order)
		s.order = append(s.order, r)
	}
	return len(records), nil
}

// Search implements rag.VectorStore.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, k int) ([]rag.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranker := scan.NewRanker(embedding, k)
	for _, r := range s.order {
		ranker.Offer(r.Document, r.Embedding)
	}
	return ranker.Results(), nil
}

// Count implements rag.VectorStore.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Close implements rag.VectorStore.
func (s *MemoryStore) Close() error {
	return nil
}
