package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/devteam/internal/config"
	"github.com/zulandar/devteam/internal/events"
)

func TestNewDispatcher_Validation(t *testing.T) {
	_, err := NewDispatcher(DispatcherOpts{Adapter: NewMockAdapter()})
	assert.Error(t, err, "no bus")
	_, err = NewDispatcher(DispatcherOpts{Bus: events.NewBus()})
	assert.Error(t, err, "no adapter")
}

func TestAllowed(t *testing.T) {
	toggles := config.EventsConfig{Projects: true, Artifacts: true}
	tests := []struct {
		typ  events.Type
		want bool
	}{
		{events.ProjectCreated, true},
		{events.ProjectDeleted, true},
		{events.ArtifactAdded, true},
		{events.ClientCreated, false},
		{events.DepartmentProgress, false},
		{events.DepartmentCompleted, false},
		{events.ChatMessage, false},
		{"other", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allowed(toggles, tt.typ), "Allowed(%s)", tt.typ)
	}
}

func startDispatcher(t *testing.T, toggles config.EventsConfig) (*events.Bus, *MockAdapter, context.CancelFunc, <-chan error) {
	t.Helper()
	bus := events.NewBus()
	adapter := NewMockAdapter()
	d, err := NewDispatcher(DispatcherOpts{Bus: bus, Adapter: adapter, Events: toggles})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return bus.Subscribers() > 0 },
		2*time.Second, time.Millisecond, "dispatcher did not subscribe")
	return bus, adapter, cancel, done
}

func TestDispatcher_RelaysAllowedEvents(t *testing.T) {
	bus, adapter, cancel, done := startDispatcher(t, config.EventsConfig{Departments: true})

	bus.Publish(events.Event{Type: events.DepartmentProgress, DepartmentID: "research", Progress: 10})
	bus.Publish(events.Event{Type: events.DepartmentCompleted, DepartmentID: "research", Department: "Research"})

	select {
	case <-adapter.Sent():
	case <-time.After(2 * time.Second):
		t.Fatal("no message sent")
	}
	cancel()
	require.NoError(t, <-done)

	sent := adapter.AllSent()
	require.Len(t, sent, 1)
	require.NotEmpty(t, sent[0].Events)
	assert.Equal(t, "Research completed", sent[0].Events[0].Title)
	assert.True(t, adapter.Closed(), "adapter is closed after Run returns")
}

func TestDispatcher_SendErrorDoesNotStop(t *testing.T) {
	bus, adapter, cancel, done := startDispatcher(t, config.EventsConfig{Projects: true})
	adapter.SetSendError(errors.New("boom"))
	bus.Publish(events.Event{Type: events.ProjectCreated, ProjectName: "A"})

	time.Sleep(20 * time.Millisecond)
	adapter.SetSendError(nil)
	bus.Publish(events.Event{Type: events.ProjectCreated, ProjectName: "B"})

	select {
	case <-adapter.Sent():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher stopped after a send error")
	}
	cancel()
	<-done
}

func TestDispatcher_StopsWhenBusCloses(t *testing.T) {
	bus, _, cancel, done := startDispatcher(t, config.EventsConfig{})
	defer cancel()
	bus.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after bus close")
	}
}

func TestDispatcher_ConnectError(t *testing.T) {
	adapter := NewMockAdapter()
	adapter.Close()
	d, _ := NewDispatcher(DispatcherOpts{Bus: events.NewBus(), Adapter: adapter})
	assert.Error(t, d.Run(context.Background()), "connect error")
}
