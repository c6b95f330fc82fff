package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator returns run ids "run-0001", "run-0002", ... so that
// artifacts written in tests are byte-identical between executions.
//
// Safe for concurrent use; the order of ids across goroutines is the order
// of the calls.
type SequentialIDGenerator struct {
	prefix string

	mu sync.Mutex
	n  int
}

// NewSequentialIDGenerator creates a generator. An empty prefix uses "run".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements runner.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
