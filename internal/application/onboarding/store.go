package onboarding

import (
	"sync"

	"github.com/go-wa-onboarding/internal/domain"
)

// Store holds the last fetched snapshot. Every Set replaces the previous
// value; fetches that finish out of order overwrite in arrival order.
type Store struct {
	mu   sync.RWMutex
	snap domain.Snapshot
	ok   bool
}

func (s *Store) Set(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.ok = true
}

// Get returns the snapshot and whether one was ever stored.
func (s *Store) Get() (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.ok
}
