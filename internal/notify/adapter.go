// Package notify relays dashboard events to chat platforms (Slack, Discord).
package notify

import "context"

// Adapter posts messages to one chat platform.
type Adapter interface {
	// Name is the platform key used in logs, e.g. "slack".
	Name() string
	// Connect authenticates. Send fails until Connect succeeds.
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	// Close releases the client. A closed adapter cannot reconnect.
	Close() error
}

// OutboundMessage is one post. Adapters fall back to their default channel
// when ChannelID is empty and render Events in the platform's rich format.
type OutboundMessage struct {
	ChannelID string
	Text      string
	Events    []FormattedEvent
}

// FormattedEvent is a platform-neutral rendering of a bus event or digest.
type FormattedEvent struct {
	Title    string
	Body     string
	Severity string // one of the Severity constants
	Color    string // "#rrggbb"
	Fields   []Field
}

// Field is a labelled value. Short fields may be laid out side by side.
type Field struct {
	Name  string
	Value string
	Short bool
}
