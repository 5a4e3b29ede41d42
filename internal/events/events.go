// Package events is the in-process fan-out for state changes. The dashboard
// streams them over SSE and the notifier relays them to chat platforms.
package events

import (
	"sync"
	"time"
)

// Type identifies the kind of state change.
type Type string

const (
	ClientCreated       Type = "client_created"
	ClientUpdated       Type = "client_updated"
	ClientDeleted       Type = "client_deleted"
	ProjectCreated      Type = "project_created"
	ProjectUpdated      Type = "project_updated"
	ProjectDeleted      Type = "project_deleted"
	DepartmentStarted   Type = "department_started"
	DepartmentProgress  Type = "department_progress"
	DepartmentCompleted Type = "department_completed"
	DepartmentStatus    Type = "department_status"
	ArtifactAdded       Type = "artifact_added"
	ChatMessage         Type = "chat_message"
)

// Event is a single state change.
type Event struct {
	Type         Type      `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	ClientID     string    `json:"client_id,omitempty"`
	ProjectID    string    `json:"project_id,omitempty"`
	ProjectName  string    `json:"project_name,omitempty"`
	DepartmentID string    `json:"department_id,omitempty"`
	Department   string    `json:"department,omitempty"`
	Status       string    `json:"status,omitempty"`
	Progress     int       `json:"progress,omitempty"`
	Artifact     string    `json:"artifact,omitempty"`
	Text         string    `json:"text,omitempty"`
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Bus delivers published events to every current subscriber. Delivery never
// blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	now    func() time.Time
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event), now: time.Now}
}

// Subscribe registers a subscriber with the given buffer size (DefaultBuffer
// when <= 0). The returned func unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish stamps evt and delivers it. A nil Bus discards events.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = b.now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel and later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
