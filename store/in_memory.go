package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/mizan/runner"
)

// Compile-time assertion.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a volatile Store keeping results in a process local map.
// It is safe for concurrent access. Results are cloned on the way in and on
// the way out so callers cannot mutate stored records.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*runner.Result
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]*runner.Result)}
}

// Save stores a clone of res.
func (s *InMemoryStore) Save(_ context.Context, res *runner.Result) error {
	if res == nil || res.RunID == "" {
		return fmt.Errorf("save: run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[res.RunID] = res.Clone()
	return nil
}

// Get returns a clone of the stored run.
func (s *InMemoryStore) Get(_ context.Context, runID string) (*runner.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return res.Clone(), nil
}

// List returns clones of the runs of taskID, oldest first.
func (s *InMemoryStore) List(_ context.Context, taskID string) ([]*runner.Result, error) {
	s.mu.RLock()
	out := make([]*runner.Result, 0, len(s.runs))
	for _, res := range s.runs {
		if taskID == "" || res.TaskID == taskID {
			out = append(out, res.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
