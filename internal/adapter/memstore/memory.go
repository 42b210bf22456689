package memstore

import (
	"fmt"
	"sync"

	"pdfrag/internal/domain"
)

// MemoryStore is a non-persistent vector store. The bbolt store also uses it
// as its in-memory search index.
type MemoryStore struct {
	mu        sync.RWMutex
	records   []domain.Record // insertion order
	ids       map[string]struct{}
	dimension int
	nextSeq   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Upsert adds records whose ids are new, assigning insertion sequence numbers.
// Existing ids are skipped and keep their original text and vector.
func (s *MemoryStore) Upsert(records []domain.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkDimension(s.dimension, records); err != nil {
		return 0, err
	}

	added := 0
	for _, r := range records {
		if _, exists := s.ids[r.Chunk.ID]; exists {
			continue
		}
		s.nextSeq++
		r.Seq = s.nextSeq
		s.append(r)
		added++
	}
	return added, nil
}

// Insert adds records that already carry a sequence number, skipping known ids.
func (s *MemoryStore) Insert(records []domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.ids[r.Chunk.ID]; exists {
			continue
		}
		if r.Seq > s.nextSeq {
			s.nextSeq = r.Seq
		}
		s.append(r)
	}
}

func (s *MemoryStore) append(r domain.Record) {
	if s.dimension == 0 {
		s.dimension = len(r.Vector)
	}
	s.records = append(s.records, r)
	s.ids[r.Chunk.ID] = struct{}{}
}

func (s *MemoryStore) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, store holds %d",
			domain.ErrStore, domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	return domain.RankTopK(vector, s.records, k), nil
}

func (s *MemoryStore) Existing(ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]bool)
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

// Has reports whether id is stored.
func (s *MemoryStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Clear drops every record and unpins the dimension.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.ids = make(map[string]struct{})
	s.dimension = 0
	return nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Dimension returns the pinned vector dimension, 0 while empty.
func (s *MemoryStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *MemoryStore) Close() error {
	return nil
}

// CheckDimension verifies every record against the pinned dimension. With
// nothing pinned the first record decides.
func CheckDimension(pinned int, records []domain.Record) error {
	return checkDimension(pinned, records)
}

func checkDimension(pinned int, records []domain.Record) error {
	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %s has no vector", domain.ErrStore, r.Chunk.ID)
		}
		if pinned == 0 {
			pinned = len(r.Vector)
			continue
		}
		if len(r.Vector) != pinned {
			return fmt.Errorf("%w: %w: record %s has %d dimensions, store holds %d",
				domain.ErrStore, domain.ErrDimensionMismatch, r.Chunk.ID, len(r.Vector), pinned)
		}
	}
	return nil
}
