package config

import (
	"sync"
	"sync/atomic"
)

// Store is the shared, internally synchronized handle to the current
// parameter record. The control loop and the sync task both hold a reference
// to the same Store; there are no ambient globals.
//
// Readers copy the record out under a short critical section and never hold
// the lock across I/O or mixing. Writers replace the record wholesale, so a
// partial or torn view is never observable.
type Store struct {
	mu  sync.Mutex
	cfg Config

	// reloadRequested decouples the sync task's write path from the loop's
	// reparse timing; it is checked without taking the mutex.
	reloadRequested atomic.Bool
}

// NewStore creates a store seeded with cfg.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Replace installs a new record wholesale.
func (s *Store) Replace(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// RequestReload asks the control loop to reparse the config file on its next
// iteration.
func (s *Store) RequestReload() {
	s.reloadRequested.Store(true)
}

// ConsumeReloadRequest reports whether a reload was requested and clears the
// flag. The flag is cleared regardless of whether the subsequent reparse
// succeeds.
func (s *Store) ConsumeReloadRequest() bool {
	return s.reloadRequested.CompareAndSwap(true, false)
}
