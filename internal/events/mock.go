package events

import (
	"context"
	"sync"
)

// MockBroadcaster records broadcasts for assertions in tests. It is safe for
// concurrent use.
type MockBroadcaster struct {
	mu sync.Mutex

	SlotStateChangedCalls []SlotStateChanged
	MatchFoundCalls       []MatchFound
	BookingCancelledCalls []BookingCancelled
}

func NewMock() *MockBroadcaster {
	return &MockBroadcaster{}
}

// Reset clears all recorded calls.
func (m *MockBroadcaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SlotStateChangedCalls = nil
	m.MatchFoundCalls = nil
	m.BookingCancelledCalls = nil
}

func (m *MockBroadcaster) SlotStateChanged(_ context.Context, event SlotStateChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SlotStateChangedCalls = append(m.SlotStateChangedCalls, event)
	return nil
}

func (m *MockBroadcaster) MatchFound(_ context.Context, event MatchFound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchFoundCalls = append(m.MatchFoundCalls, event)
	return nil
}

func (m *MockBroadcaster) BookingCancelled(_ context.Context, event BookingCancelled) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BookingCancelledCalls = append(m.BookingCancelledCalls, event)
	return nil
}

// Snapshot returns copies of the recorded calls for race-free assertions.
func (m *MockBroadcaster) Snapshot() (slots []SlotStateChanged, matches []MatchFound, cancels []BookingCancelled) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots = append(slots, m.SlotStateChangedCalls...)
	matches = append(matches, m.MatchFoundCalls...)
	cancels = append(cancels, m.BookingCancelledCalls...)
	return slots, matches, cancels
}
