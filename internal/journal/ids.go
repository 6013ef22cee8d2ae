package journal

import (
	"sync"

	"github.com/google/uuid"
)

// IDSource assigns run identities.
type IDSource interface {
	NewID() string
}

// UUIDSource generates time-sortable UUIDv7 run IDs. The embedded
// timestamp makes lexicographic ID order creation order, which List
// relies on. Stateless and safe for concurrent use.
type UUIDSource struct{}

// NewID returns a new UUIDv7 as a hyphenated string.
func (UUIDSource) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedSource returns predetermined IDs, for deterministic tests. Safe
// for concurrent use.
type FixedSource struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedSource creates a source that returns ids in order and panics
// when they run out, to catch tests recording more runs than expected.
func NewFixedSource(ids ...string) *FixedSource {
	return &FixedSource{ids: ids}
}

// NewID returns the next predetermined ID.
func (f *FixedSource) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.ids) {
		panic("journal: FixedSource exhausted")
	}
	id := f.ids[f.idx]
	f.idx++
	return id
}
