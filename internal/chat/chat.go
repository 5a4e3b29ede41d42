// Package chat keeps a per-project message log and a simulated responder.
package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zulandar/devteam/internal/models"
)

// Defaults for Options.
const (
	DefaultReplyDelay = 1500 * time.Millisecond
	ResponderID       = "business-analysis"
	WelcomeMessage    = "Welcome to the project chat! How can I help you today?"
	replyTemplate     = "I understood your request: %q. I'll process it and get back shortly with a detailed analysis."
)

// Options configures sessions created by a Hub.
type Options struct {
	ReplyDelay time.Duration
	// OnMessage is called after every message is appended, outside the lock.
	OnMessage func(models.ChatMessage)
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper
}

type stopper interface{ Stop() bool }

// pendingReply tracks one scheduled reply.
type pendingReply struct {
	timer stopper
}

func (o *Options) applyDefaults() {
	if o.ReplyDelay <= 0 {
		o.ReplyDelay = DefaultReplyDelay
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.afterFunc == nil {
		o.afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }
	}
}

// Reply returns the canned response for a user message.
func Reply(text string) string {
	return fmt.Sprintf(replyTemplate, text)
}

// Session is one project's ordered, append-only chat log.
type Session struct {
	projectID string
	opts      Options

	mu       sync.Mutex
	messages []models.ChatMessage
	pending  map[*pendingReply]struct{}
	closed   bool
}

func newSession(projectID string, opts Options) *Session {
	s := &Session{projectID: projectID, opts: opts, pending: make(map[*pendingReply]struct{})}
	s.messages = append(s.messages, s.newMessage(models.SenderSystem, "", WelcomeMessage, models.KindText))
	return s
}

// ProjectID returns the owning project.
func (s *Session) ProjectID() string { return s.projectID }

// Messages returns a copy of the log in arrival order.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Loading reports whether a simulated reply is still pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Send appends a user message and schedules the canned reply. Overlapping
// sends are not correlated; replies land in timer order.
func (s *Session) Send(text string) (models.ChatMessage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ChatMessage{}, fmt.Errorf("chat: session %s is closed", s.projectID)
	}
	msg := s.newMessage(models.SenderUser, "", text, models.KindText)
	s.messages = append(s.messages, msg)

	p := &pendingReply{}
	p.timer = s.opts.afterFunc(s.opts.ReplyDelay, func() { s.reply(p, text) })
	s.pending[p] = struct{}{}
	s.mu.Unlock()

	s.notify(msg)
	return msg, nil
}

// AddArtifact appends a department artifact message.
func (s *Session) AddArtifact(departmentID, content string) models.ChatMessage {
	return s.append(models.SenderDepartment, departmentID, content, models.KindArtifact)
}

// AddSystem appends a system notice.
func (s *Session) AddSystem(content string) models.ChatMessage {
	return s.append(models.SenderSystem, "", content, models.KindSystem)
}

// Close cancels pending replies. Later sends fail.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for p := range s.pending {
		p.timer.Stop()
		delete(s.pending, p)
	}
}

func (s *Session) reply(p *pendingReply, text string) {
	s.mu.Lock()
	if _, ok := s.pending[p]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, p)
	msg := s.newMessage(models.SenderSystem, ResponderID, Reply(text), models.KindText)
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify(msg)
}

func (s *Session) append(sender models.Sender, departmentID, content string, kind models.MessageKind) models.ChatMessage {
	s.mu.Lock()
	msg := s.newMessage(sender, departmentID, content, kind)
	if s.closed {
		s.mu.Unlock()
		return msg
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify(msg)
	return msg
}

func (s *Session) newMessage(sender models.Sender, departmentID, content string, kind models.MessageKind) models.ChatMessage {
	return models.ChatMessage{
		ID:           uuid.NewString(),
		ProjectID:    s.projectID,
		Sender:       sender,
		DepartmentID: departmentID,
		Content:      content,
		Timestamp:    s.opts.now(),
		Kind:         kind,
	}
}

func (s *Session) notify(msg models.ChatMessage) {
	if s.opts.OnMessage != nil {
		s.opts.OnMessage(msg)
	}
}

// Hub lazily creates one Session per project. Dropped projects stay dropped.
type Hub struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
	dropped  map[string]struct{}
}

// NewHub returns an empty Hub.
func NewHub(opts Options) *Hub {
	opts.applyDefaults()
	return &Hub{
		opts:     opts,
		sessions: make(map[string]*Session),
		dropped:  make(map[string]struct{}),
	}
}

// Session returns the project's session, creating it on first use. A dropped
// project gets a detached, closed session that records nothing.
func (h *Hub) Session(projectID string) *Session {
	if s, ok := h.Live(projectID); ok {
		return s
	}
	s := newSession(projectID, h.opts)
	s.closed = true
	return s
}

// Live is Session without the detached fallback: ok is false once the
// project has been dropped.
func (h *Hub) Live(projectID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, gone := h.dropped[projectID]; gone {
		return nil, false
	}
	s, ok := h.sessions[projectID]
	if !ok {
		s = newSession(projectID, h.opts)
		h.sessions[projectID] = s
	}
	return s, true
}

// Drop closes and forgets the project's session. Later lookups for the
// project never create a new one.
func (h *Hub) Drop(projectID string) {
	h.mu.Lock()
	s, ok := h.sessions[projectID]
	delete(h.sessions, projectID)
	h.dropped[projectID] = struct{}{}
	h.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close closes every session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
