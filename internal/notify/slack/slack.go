// Package slack posts dashboard notifications to a Slack channel through
// the Web API, rendering events as Block Kit sections.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/zulandar/devteam/internal/notify"
)

const (
	// Rate-limited posts are retried this many times before giving up.
	maxRetries = 3
	// Slack caps header text at 150 characters and section text at 3000.
	maxHeaderLen  = 150
	maxSectionLen = 3000
	// Section blocks accept at most ten fields.
	maxFields = 10
)

// webAPI is the subset of *slackapi.Client the adapter calls.
type webAPI interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Identity is the bot account the token authenticates as.
type Identity struct {
	UserID string
	Team   string
}

// Adapter implements notify.Adapter for Slack.
type Adapter struct {
	token   string
	channel string
	backoff time.Duration

	mu    sync.Mutex
	api   webAPI
	ident Identity
	state state
}

type state int

const (
	idle state = iota
	ready
	closed
)

// AdapterOpts configures New.
type AdapterOpts struct {
	BotToken  string
	ChannelID string // used when a message names no channel
	// Client replaces the real Web API client in tests.
	Client webAPI
}

// New returns an unconnected Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, errors.New("slack: bot token is required")
	}
	return &Adapter{
		token:   opts.BotToken,
		channel: opts.ChannelID,
		api:     opts.Client,
		backoff: time.Second,
	}, nil
}

// Name returns "slack".
func (a *Adapter) Name() string { return "slack" }

// Connect checks the token with auth.test and records the bot identity.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case closed:
		return errors.New("slack: adapter already closed")
	case ready:
		return nil
	}
	if a.api == nil {
		a.api = slackapi.New(a.token)
	}
	resp, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.ident = Identity{UserID: resp.UserID, Team: resp.Team}
	a.state = ready
	return nil
}

// Identity returns the bot identity recorded by Connect.
func (a *Adapter) Identity() Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ident
}

// Send posts msg, retrying while Slack reports rate limiting.
func (a *Adapter) Send(ctx context.Context, msg notify.OutboundMessage) error {
	a.mu.Lock()
	api, st := a.api, a.state
	a.mu.Unlock()
	if st != ready {
		return errors.New("slack: not connected")
	}

	channel := msg.ChannelID
	if channel == "" {
		channel = a.channel
	}
	if channel == "" {
		return errors.New("slack: no channel specified")
	}

	opts := messageOptions(msg)
	err := a.retry(ctx, func() error {
		_, _, err := api.PostMessageContext(ctx, channel, opts...)
		return err
	})
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", channel, err)
	}
	return nil
}

// Close marks the adapter closed. The Web API keeps no connection open.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = closed
	return nil
}

// messageOptions always sets a plain-text fallback for push notifications;
// events add one block group each, separated by dividers.
func messageOptions(msg notify.OutboundMessage) []slackapi.MsgOption {
	fallback := msg.Text
	if fallback == "" && len(msg.Events) > 0 {
		fallback = msg.Events[0].Title
	}
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(fallback, false)}
	if len(msg.Events) == 0 {
		return opts
	}

	var blocks []slackapi.Block
	for i, evt := range msg.Events {
		if i > 0 {
			blocks = append(blocks, slackapi.NewDividerBlock())
		}
		blocks = append(blocks, eventBlocks(evt)...)
	}
	return append(opts, slackapi.MsgOptionBlocks(blocks...))
}

// eventBlocks renders one event as a header, an optional body section and
// an optional fields section.
func eventBlocks(evt notify.FormattedEvent) []slackapi.Block {
	title := evt.Title
	if marker := severityMarker(evt.Severity); marker != "" {
		title = marker + " " + title
	}
	blocks := []slackapi.Block{
		slackapi.NewHeaderBlock(plain(truncate(title, maxHeaderLen))),
	}

	if evt.Body != "" {
		blocks = append(blocks, slackapi.NewSectionBlock(mrkdwn(truncate(evt.Body, maxSectionLen)), nil, nil))
	}

	var fields []*slackapi.TextBlockObject
	for _, f := range evt.Fields {
		if len(fields) == maxFields {
			break
		}
		fields = append(fields, mrkdwn(fmt.Sprintf("*%s*\n%s", f.Name, f.Value)))
	}
	if len(fields) > 0 {
		blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))
	}
	return blocks
}

func severityMarker(severity string) string {
	switch severity {
	case notify.SeveritySuccess:
		return ":white_check_mark:"
	case notify.SeverityWarning:
		return ":warning:"
	case notify.SeverityError:
		return ":x:"
	}
	return ""
}

func plain(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.PlainTextType, text, true, false)
}

func mrkdwn(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// retry runs fn until it succeeds, fails with something other than a rate
// limit, or maxRetries retries are spent. Slack's Retry-After wins over the
// doubling backoff.
func (a *Adapter) retry(ctx context.Context, fn func() error) error {
	delay := a.backoff
	for attempt := 0; ; attempt++ {
		err := fn()
		var limited *slackapi.RateLimitedError
		if err == nil || !errors.As(err, &limited) || attempt == maxRetries {
			return err
		}

		wait := delay
		if limited.RetryAfter > 0 {
			wait = limited.RetryAfter
		}
		delay *= 2

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
