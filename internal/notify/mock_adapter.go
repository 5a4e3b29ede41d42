package notify

import (
	"context"
	"errors"
	"sync"
)

// MockAdapter is an in-memory Adapter for tests. Each successful Send is
// recorded and signalled on Sent.
type MockAdapter struct {
	mu       sync.Mutex
	live     bool
	shut     bool
	failWith error
	log      []OutboundMessage
	signal   chan struct{}
}

// NewMockAdapter returns an unconnected MockAdapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{signal: make(chan struct{}, 64)}
}

// Name returns "mock".
func (m *MockAdapter) Name() string { return "mock" }

// Connect fails once the adapter is closed.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shut {
		return errors.New("mock: closed")
	}
	m.live = true
	return nil
}

// Send records msg, or returns the error set by SetSendError.
func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.live:
		return errors.New("mock: not connected")
	case m.failWith != nil:
		return m.failWith
	}
	m.log = append(m.log, msg)
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return nil
}

// Close disconnects the adapter for good.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live, m.shut = false, true
	return nil
}

// SetSendError makes later sends fail with err; nil restores success.
func (m *MockAdapter) SetSendError(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

// Sent receives once per recorded message. Signals beyond the buffer are dropped.
func (m *MockAdapter) Sent() <-chan struct{} { return m.signal }

// Closed reports whether Close was called.
func (m *MockAdapter) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shut
}

// AllSent returns the recorded messages in send order.
func (m *MockAdapter) AllSent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboundMessage(nil), m.log...)
}
