package events

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Type names a change that makes cached conversation views stale.
type Type string

const (
	// TypeMessageSent is emitted after a message has been appended.
	TypeMessageSent Type = "message.sent"
	// TypeThreadRead is emitted when opening a thread flipped unread messages to read.
	TypeThreadRead Type = "thread.read"
)

// Event describes a change to one conversation.
// For TypeThreadRead, ReceiverID is the reader and SenderID the counterpart whose
// messages were marked read.
type Event struct {
	Type       Type      `json:"type"`
	ListingID  string    `json:"listingId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	MessageID  string    `json:"messageId,omitempty"`
	Count      int64     `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

// Recipients returns the user IDs whose views are affected by the event.
func (e Event) Recipients() []string {
	switch e.Type {
	case TypeThreadRead:
		return []string{e.ReceiverID}
	default:
		if e.SenderID == e.ReceiverID {
			return []string{e.SenderID}
		}
		return []string{e.SenderID, e.ReceiverID}
	}
}

// ConversationKey identifies the conversation independent of direction.
func (e Event) ConversationKey() string {
	users := []string{e.SenderID, e.ReceiverID}
	sort.Strings(users)
	return e.ListingID + ":" + users[0] + ":" + users[1]
}

// Publisher delivers events to an interested party.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes every event to all of its publishers.
type Fanout struct {
	publishers []Publisher
	log        *zerolog.Logger
}

// NewFanout builds a Fanout. Nil publishers are skipped.
func NewFanout(logger *zerolog.Logger, publishers ...Publisher) *Fanout {
	f := &Fanout{log: logger}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish sends the event to every publisher even when some of them fail.
// The returned error joins all failures.
func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			if f.log != nil {
				f.log.Warn().Err(err).Str("event", string(ev.Type)).Str("listing_id", ev.ListingID).Msg("publish event failed")
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
