package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/devteam/internal/config"
	"github.com/zulandar/devteam/internal/events"
)

// defaultSendTimeout bounds a single platform call.
const defaultSendTimeout = 10 * time.Second

// Dispatcher relays bus events to an Adapter, filtered by config toggles.
type Dispatcher struct {
	bus         *events.Bus
	adapter     Adapter
	toggles     config.EventsConfig
	logger      *slog.Logger
	sendTimeout time.Duration
	source      DigestSource
	digest      cron.Schedule
	now         func() time.Time
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Bus         *events.Bus
	Adapter     Adapter
	Events      config.EventsConfig
	Logger      *slog.Logger  // defaults to a discarding logger
	SendTimeout time.Duration // defaults to 10s

	// Digest is an optional cron schedule for periodic summaries of Source.
	Digest string
	Source DigestSource
}

// NewDispatcher creates a Dispatcher with the given options.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Bus == nil {
		return nil, fmt.Errorf("notify: bus is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("notify: adapter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	d := &Dispatcher{
		bus:         opts.Bus,
		adapter:     opts.Adapter,
		toggles:     opts.Events,
		logger:      logger,
		sendTimeout: timeout,
		source:      opts.Source,
		now:         time.Now,
	}
	if opts.Digest != "" {
		if opts.Source == nil {
			return nil, fmt.Errorf("notify: digest requires a source")
		}
		sched, err := ParseSchedule(opts.Digest)
		if err != nil {
			return nil, err
		}
		d.digest = sched
	}
	return d, nil
}

// Allowed reports whether the toggles let an event type through.
func Allowed(toggles config.EventsConfig, t events.Type) bool {
	switch t {
	case events.ClientCreated, events.ClientUpdated, events.ClientDeleted:
		return toggles.Clients
	case events.ProjectCreated, events.ProjectUpdated, events.ProjectDeleted:
		return toggles.Projects
	case events.DepartmentStarted, events.DepartmentCompleted, events.DepartmentStatus:
		return toggles.Departments
	case events.DepartmentProgress:
		return toggles.Progress
	case events.ArtifactAdded:
		return toggles.Artifacts
	case events.ChatMessage:
		return toggles.Chat
	default:
		return false
	}
}

// Run connects the adapter, subscribes to the bus and relays events until
// the context is cancelled or the bus closes. On return the adapter is closed.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("notify: connect %s: %w", d.adapter.Name(), err)
	}
	defer func() {
		if err := d.adapter.Close(); err != nil {
			d.logger.Warn("notify: close adapter", "platform", d.adapter.Name(), "error", err)
		}
	}()

	ch, unsubscribe := d.bus.Subscribe(events.DefaultBuffer)
	defer unsubscribe()

	var (
		timer   *time.Timer
		digestC <-chan time.Time // nil when no digest is scheduled
	)
	if d.digest != nil {
		timer = time.NewTimer(nextDigestDelay(d.digest, d.now()))
		defer timer.Stop()
		digestC = timer.C
	}

	d.logger.Info("notify: relaying events", "platform", d.adapter.Name(), "digest", d.digest != nil)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-digestC:
			d.sendDigest(ctx)
			timer.Reset(nextDigestDelay(d.digest, d.now()))
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			d.handle(ctx, evt)
		}
	}
}

// handle applies the toggles, formats, and sends a single event.
func (d *Dispatcher) handle(ctx context.Context, evt events.Event) {
	if !Allowed(d.toggles, evt.Type) {
		return
	}
	formatted := FormatEvent(evt)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.adapter.Send(sendCtx, OutboundMessage{
		Text:   formatted.Title,
		Events: []FormattedEvent{formatted},
	}); err != nil {
		d.logger.Error("notify: send event", "type", evt.Type, "platform", d.adapter.Name(), "error", err)
	}
}

// sendDigest posts a summary of every project. Empty workspaces are skipped.
func (d *Dispatcher) sendDigest(ctx context.Context) {
	digest, ok := BuildDigest(d.source, d.now())
	if !ok {
		d.logger.Debug("notify: digest skipped, no projects")
		return
	}
	formatted := FormatDigest(digest)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.adapter.Send(sendCtx, OutboundMessage{
		Text:   formatted.Title,
		Events: []FormattedEvent{formatted},
	}); err != nil {
		d.logger.Error("notify: send digest", "platform", d.adapter.Name(), "error", err)
	}
}
