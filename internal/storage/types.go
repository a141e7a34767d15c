// Package storage defines the persistence interfaces for the Continuo core.
//
// The storage layer is split into small, focused interfaces that a backend
// implements independently. The default backend lives in the sqlite
// subpackage; vector similarity is handled separately by internal/vector.
package storage

import (
	"errors"
	"time"

	"github.com/continuo/continuo/pkg/types"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// MemoryFilter restricts memory listing and retrieval hydration.
// Zero values mean "no filter".
type MemoryFilter struct {
	// MemoryType filters by memory type (context, decision, learning, event).
	MemoryType types.MemoryType

	// Category filters by the free-form domain tag.
	Category string

	// Tags requires every listed tag to be present on the record.
	Tags []string

	// Limit caps the number of results (default 50, max 500).
	Limit int
}

// Normalize applies defaults and caps to the filter.
func (f *MemoryFilter) Normalize() {
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}

// Matches reports whether the memory satisfies the filter.
func (f *MemoryFilter) Matches(m *types.Memory) bool {
	if f.MemoryType != "" && m.MemoryType != f.MemoryType {
		return false
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, got := range m.Tags {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TaskFilter restricts task queue listings. Zero values mean "no filter".
type TaskFilter struct {
	ProjectID  string
	AssignedTo string

	// Limit caps the number of results (default 50, max 500).
	Limit int
}

// Normalize applies defaults and caps to the filter.
func (f *TaskFilter) Normalize() {
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}

// SweepCriteria describes which memories the decay sweep deletes. A record
// is eligible when its expiry has passed OR when it is both unimportant
// and stale (logical OR between the two arms).
type SweepCriteria struct {
	// Now is the sweep's reference instant.
	Now time.Time

	// DecayThreshold is the importance score below which a stale record
	// becomes eligible.
	DecayThreshold float64

	// DecayWindow is how long a record may go unaccessed before the
	// importance arm applies.
	DecayWindow time.Duration
}
