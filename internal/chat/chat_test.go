package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/devteam/internal/models"
)

// manualTimers captures scheduled replies so tests fire them explicitly.
type manualTimers struct {
	mu    sync.Mutex
	funcs []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := !m.stopped
	m.stopped = true
	return was
}

func (m *manualTimers) afterFunc(_ time.Duration, f func()) stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{f: f}
	m.funcs = append(m.funcs, t)
	return t
}

func (m *manualTimers) fire(i int) {
	m.mu.Lock()
	t := m.funcs[i]
	m.mu.Unlock()
	if !t.stopped {
		t.f()
	}
}

func newTestHub(timers *manualTimers, onMessage func(models.ChatMessage)) *Hub {
	return NewHub(Options{OnMessage: onMessage, afterFunc: timers.afterFunc})
}

func TestSession_Welcome(t *testing.T) {
	h := newTestHub(&manualTimers{}, nil)
	msgs := h.Session("p1").Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderSystem, msgs[0].Sender)
	assert.Equal(t, WelcomeMessage, msgs[0].Content)
	assert.Equal(t, "p1", msgs[0].ProjectID)
}

func TestSession_SendAndReply(t *testing.T) {
	timers := &manualTimers{}
	var seen []models.ChatMessage
	h := newTestHub(timers, func(m models.ChatMessage) { seen = append(seen, m) })
	s := h.Session("p1")

	msg, err := s.Send("build me a CRM")
	require.NoError(t, err)
	assert.Equal(t, models.SenderUser, msg.Sender)
	assert.True(t, s.Loading())
	require.Len(t, s.Messages(), 2)

	timers.fire(0)
	assert.False(t, s.Loading())
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	reply := msgs[2]
	assert.Equal(t, models.SenderSystem, reply.Sender)
	assert.Equal(t, ResponderID, reply.DepartmentID)
	assert.Equal(t, models.KindText, reply.Kind)
	assert.Contains(t, reply.Content, "build me a CRM")
	assert.Len(t, seen, 2)
}

func TestSession_OverlappingSendsInterleave(t *testing.T) {
	timers := &manualTimers{}
	s := newTestHub(timers, nil).Session("p1")

	_, _ = s.Send("first")
	_, _ = s.Send("second")
	timers.fire(1)
	assert.True(t, s.Loading())
	timers.fire(0)
	assert.False(t, s.Loading())

	msgs := s.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
	assert.Equal(t, Reply("second"), msgs[3].Content)
	assert.Equal(t, Reply("first"), msgs[4].Content)
}

func TestSession_CloseCancelsReplies(t *testing.T) {
	timers := &manualTimers{}
	h := newTestHub(timers, nil)
	s := h.Session("p1")
	_, _ = s.Send("hello")

	h.Drop("p1")
	timers.fire(0)
	assert.Len(t, s.Messages(), 2)
	assert.False(t, s.Loading())

	_, err := s.Send("again")
	assert.Error(t, err)

	fresh := h.Session("p1")
	assert.NotSame(t, s, fresh)
	assert.Len(t, fresh.Messages(), 1)
}

func TestSession_AddArtifact(t *testing.T) {
	s := newTestHub(&manualTimers{}, nil).Session("p1")
	msg := s.AddArtifact("development", "Source Code")
	assert.Equal(t, models.SenderDepartment, msg.Sender)
	assert.Equal(t, models.KindArtifact, msg.Kind)
	assert.Equal(t, "development", msg.DepartmentID)

	sys := s.AddSystem("Development started")
	assert.Equal(t, models.KindSystem, sys.Kind)
	assert.Len(t, s.Messages(), 3)
}

func TestHub_DroppedProjectStaysDropped(t *testing.T) {
	var seen []models.ChatMessage
	h := newTestHub(&manualTimers{}, func(m models.ChatMessage) { seen = append(seen, m) })
	live, ok := h.Live("p1")
	require.True(t, ok)
	live.AddSystem("Research started")
	require.Len(t, seen, 1)

	h.Drop("p1")
	_, ok = h.Live("p1")
	assert.False(t, ok)

	// A late writer gets a detached session that keeps and publishes nothing.
	late := h.Session("p1")
	late.AddArtifact("research", "Research delivered: Report")
	assert.Len(t, late.Messages(), 1)
	assert.Len(t, seen, 1)
	_, err := late.Send("hello?")
	assert.Error(t, err)
	assert.NotSame(t, late, h.Session("p1"))

	_, ok = h.Live("p2")
	assert.True(t, ok)
}

func TestHub_SessionPerProject(t *testing.T) {
	h := newTestHub(&manualTimers{}, nil)
	a := h.Session("p1")
	assert.Same(t, a, h.Session("p1"))
	assert.NotSame(t, a, h.Session("p2"))
	h.Close()
	_, err := a.Send("x")
	assert.Error(t, err)
}

func TestSession_RealTimer(t *testing.T) {
	done := make(chan models.ChatMessage, 4)
	h := NewHub(Options{ReplyDelay: 10 * time.Millisecond, OnMessage: func(m models.ChatMessage) { done <- m }})
	defer h.Close()
	s := h.Session("p1")
	_, err := s.Send("ping")
	require.NoError(t, err)

	<-done
	select {
	case reply := <-done:
		assert.Equal(t, Reply("ping"), reply.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("reply not delivered")
	}
}
