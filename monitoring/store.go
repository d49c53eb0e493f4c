package monitoring

import (
	"sync"
	"time"

	"serialplotter/acquisition"
)

// Store holds the latest session status and window snapshot. The poll loop
// writes it; HTTP handlers read it from their own goroutines.
type Store struct {
	mu        sync.RWMutex
	status    acquisition.Status
	samples   []acquisition.Sample
	updatedAt time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		status: acquisition.Status{State: acquisition.StateIdle},
	}
}

// Update replaces the published state. samples must not be modified by the
// caller afterwards.
func (s *Store) Update(status acquisition.Status, samples []acquisition.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.samples = samples
	s.updatedAt = time.Now()
}

// Status returns the latest published status
func (s *Store) Status() acquisition.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Samples returns the latest published window, oldest first
func (s *Store) Samples() []acquisition.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples
}

// UpdatedAt returns when the store was last written
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
