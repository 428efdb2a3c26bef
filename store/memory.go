package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps records for the life of the process.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	trials      map[string]TrialRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.trials = make(map[string]TrialRecord)
	return nil
}

func (s *MemoryStore) SaveTrial(_ context.Context, rec TrialRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return "", ErrNotInitialized
	}
	rec = prepare(rec)
	s.trials[rec.ID] = rec
	return rec.ID, nil
}

func (s *MemoryStore) GetTrial(_ context.Context, id string) (TrialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return TrialRecord{}, ErrNotInitialized
	}
	rec, ok := s.trials[id]
	if !ok {
		return TrialRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (s *MemoryStore) ListTrials(_ context.Context) ([]TrialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]TrialRecord, 0, len(s.trials))
	for _, rec := range s.trials {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
