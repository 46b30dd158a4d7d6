package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable snapshot IDs.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same sequence of store writes produces identical IDs.
//
// IDs have the UUID text shape so they pass the same column checks as
// generated ones: 00000000-0000-7000-8000-000000000001, ...
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialIDs creates a generator whose first ID ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next ID.
func (g *SequentialIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", g.seq), nil
}
