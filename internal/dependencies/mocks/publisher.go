package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/tourney/internal/model"
)

// MockPublisher records published events for assertions
type MockPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

// NewMockPublisher creates an empty MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event
func (p *MockPublisher) Publish(_ context.Context, event model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of everything published so far
func (p *MockPublisher) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the type of every published event in order
func (p *MockPublisher) Types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// Reset forgets all recorded events
func (p *MockPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
