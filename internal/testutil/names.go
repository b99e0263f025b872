// Package testutil provides deterministic stand-ins and fixtures for tests.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceSource generates deterministic identifiers for tests: prefix-1,
// prefix-2, and so on, counted per prefix. It stands in for the production
// UUID-backed generator so logs and golden files are byte-stable.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceSource struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewSequenceSource creates a source whose first Fresh("x") returns "x-1".
func NewSequenceSource() *SequenceSource {
	return &SequenceSource{counts: make(map[string]int)}
}

// Fresh returns the next identifier for the prefix.
func (s *SequenceSource) Fresh(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[prefix]++
	return fmt.Sprintf("%s-%d", prefix, s.counts[prefix])
}

// Reset clears all counters so a scenario can re-run with identical names.
func (s *SequenceSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make(map[string]int)
}
