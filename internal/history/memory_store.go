package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is the default driver.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *MemoryStore) ListBySession(_ context.Context, sessionID string, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].SessionID == sessionID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if !r.CreatedAt.Before(before) {
			kept = append(kept, r)
		}
	}
	removed := int64(len(s.records) - len(kept))
	s.records = kept
	return removed, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
