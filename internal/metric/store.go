package metric

import (
	"sync"
	"time"
)

// Store keeps the batch of the most recent collection pass in memory.
type Store struct {
	mu    sync.RWMutex
	batch Batch
	at    time.Time
	ready bool
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Update swaps the stored batch atomically.
func (s *Store) Update(batch Batch, at time.Time) {
	s.mu.Lock()
	s.batch = batch
	s.at = at
	s.ready = true
	s.mu.Unlock()
}

// Latest returns the most recent batch and its pass time, if any pass has
// completed.
func (s *Store) Latest() (Batch, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return Batch{}, time.Time{}, false
	}
	return s.batch, s.at, true
}
