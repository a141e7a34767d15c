package engine

import "sync"

// lockDecaySweep is the advisory lock name guarding the decay sweep; it
// is the only operation permitted to delete memory rows.
const lockDecaySweep = "memory:decay-sweep"

// AdvisoryLocks is a registry of named non-blocking locks. Overlapping
// holders of the same name see TryAcquire fail instead of queueing, so a
// sweep running concurrently with itself is a no-op rather than duplicate
// work. Unrelated reads and writes are never serialized through this.
type AdvisoryLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewAdvisoryLocks creates an empty lock registry.
func NewAdvisoryLocks() *AdvisoryLocks {
	return &AdvisoryLocks{held: make(map[string]bool)}
}

// TryAcquire takes the named lock if it is free and reports whether it
// was acquired.
func (l *AdvisoryLocks) TryAcquire(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false
	}
	l.held[name] = true
	return true
}

// Release frees the named lock. Releasing an unheld lock is a no-op.
func (l *AdvisoryLocks) Release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
}
