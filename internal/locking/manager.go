// Package locking provides in-process run locks for background jobs.
// A lock is a simple in-progress flag: overlapping acquisitions fail
// immediately rather than queue, so a triggered job silently skips a cycle
// that is already running.
package locking

import (
	"fmt"
	"sync"
	"time"
)

// Manager tracks named in-progress locks
type Manager struct {
	mu    sync.Mutex
	locks map[string]time.Time // name -> acquisition time
}

// NewManager creates a new lock manager
func NewManager() *Manager {
	return &Manager{
		locks: make(map[string]time.Time),
	}
}

// Acquire takes the named lock, or returns an error if it is already held
func (m *Manager) Acquire(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if since, held := m.locks[name]; held {
		return fmt.Errorf("lock %q held since %s", name, since.Format(time.RFC3339))
	}

	m.locks[name] = time.Now()
	return nil
}

// Release frees the named lock. Releasing an unheld lock is a no-op.
func (m *Manager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, name)
}

// IsHeld reports whether the named lock is currently held
func (m *Manager) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[name]
	return held
}
