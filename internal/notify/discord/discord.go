// Package discord posts dashboard notifications to a Discord channel as
// embeds over the REST API. No gateway connection is opened.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zulandar/devteam/internal/notify"
)

// Discord API limits.
const (
	maxEmbedsPerMessage = 10
	maxTitleLen         = 256
	maxDescriptionLen   = 4096
	maxEmbedFields      = 25
)

const (
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 2 * time.Minute
)

// restClient is the subset of *discordgo.Session the adapter calls.
type restClient interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Adapter implements notify.Adapter for Discord.
type Adapter struct {
	token   string
	channel string
	logger  *slog.Logger
	base    time.Duration
	ceiling time.Duration

	mu     sync.Mutex
	rest   restClient
	ready  bool
	closed bool
}

// AdapterOpts configures New.
type AdapterOpts struct {
	BotToken  string
	ChannelID string // used when a message names no channel
	Logger    *slog.Logger
	// Session replaces the real discordgo session in tests.
	Session restClient
}

// New returns an unconnected Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, errors.New("discord: bot token is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		token:   opts.BotToken,
		channel: opts.ChannelID,
		logger:  logger,
		rest:    opts.Session,
		base:    baseBackoff,
		ceiling: maxBackoff,
	}, nil
}

// Name returns "discord".
func (a *Adapter) Name() string { return "discord" }

// Connect builds the REST session from the bot token.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("discord: adapter already closed")
	}
	if a.ready {
		return nil
	}
	if a.rest == nil {
		s, err := discordgo.New("Bot " + a.token)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		a.rest = s
	}
	a.ready = true
	return nil
}

// Send posts msg. Events become embeds that replace the text, split across
// as many messages as the per-message embed limit requires.
func (a *Adapter) Send(ctx context.Context, msg notify.OutboundMessage) error {
	a.mu.Lock()
	rest, ready := a.rest, a.ready
	a.mu.Unlock()
	if !ready {
		return errors.New("discord: not connected")
	}

	channel := msg.ChannelID
	if channel == "" {
		channel = a.channel
	}
	if channel == "" {
		return errors.New("discord: no channel specified")
	}

	for i, data := range messageSends(msg) {
		err := a.retry(ctx, func() error {
			_, err := rest.ChannelMessageSendComplex(channel, data)
			return err
		})
		if err != nil {
			return fmt.Errorf("discord: send to %s (part %d): %w", channel, i+1, err)
		}
	}
	return nil
}

// Close releases the session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.ready = false
	if a.rest == nil {
		return nil
	}
	if err := a.rest.Close(); err != nil {
		return fmt.Errorf("discord: close session: %w", err)
	}
	return nil
}

func messageSends(msg notify.OutboundMessage) []*discordgo.MessageSend {
	if len(msg.Events) == 0 {
		return []*discordgo.MessageSend{{Content: msg.Text}}
	}
	var out []*discordgo.MessageSend
	for start := 0; start < len(msg.Events); start += maxEmbedsPerMessage {
		end := min(start+maxEmbedsPerMessage, len(msg.Events))
		data := &discordgo.MessageSend{}
		for _, evt := range msg.Events[start:end] {
			data.Embeds = append(data.Embeds, embed(evt))
		}
		out = append(out, data)
	}
	return out
}

func embed(evt notify.FormattedEvent) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       clip(evt.Title, maxTitleLen),
		Description: clip(evt.Body, maxDescriptionLen),
		Color:       hexColor(evt.Color),
	}
	if evt.Severity != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: evt.Severity}
	}
	for i, f := range evt.Fields {
		if i == maxEmbedFields {
			break
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return e
}

// hexColor parses "#rrggbb" into Discord's integer color. Malformed input
// yields 0, the default embed color.
func hexColor(s string) int {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 24)
	if err != nil {
		return 0
	}
	return int(v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// retry re-runs fn on HTTP 429 with exponential backoff capped at the
// ceiling. A Retry-After header replaces the computed wait.
func (a *Adapter) retry(ctx context.Context, fn func() error) error {
	wait := a.base
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var restErr *discordgo.RESTError
		if !errors.As(err, &restErr) || restErr.Response == nil ||
			restErr.Response.StatusCode != http.StatusTooManyRequests || attempt > maxRetries {
			return err
		}

		delay := min(wait, a.ceiling)
		if after, ok := retryAfter(restErr.Response); ok {
			delay = after
		}
		wait *= 2
		a.logger.Warn("discord: rate limited", "attempt", attempt, "max", maxRetries, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// retryAfter reads the Retry-After header, which Discord sends in
// (possibly fractional) seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
