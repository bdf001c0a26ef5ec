package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/tourney/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing.
// Queued IDs are returned first; afterwards IDs are prefix + a per-mock counter.
type MockIDs struct {
	mu      sync.Mutex
	queued  []string
	counter int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns the next queued ID, or a deterministic sequential one
func (m *MockIDs) NewID(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queued) > 0 {
		id := m.queued[0]
		m.queued = m.queued[1:]
		return id
	}
	m.counter++
	return fmt.Sprintf("%s%d", prefix, m.counter)
}

// Queue adds IDs to be returned by subsequent NewID calls
func (m *MockIDs) Queue(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, values...)
}

// Reset clears queued IDs and the counter
func (m *MockIDs) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = nil
	m.counter = 0
}
