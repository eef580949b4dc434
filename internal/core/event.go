package core

import (
	"time"

	"github.com/balloonhub/marketplace-server/internal/events"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessageSent notifies both participants about a new message.
	EventMessageSent EventKind = iota
	// EventThreadRead notifies the reader that incoming messages were marked read.
	EventThreadRead
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventMessageSent:
		return string(events.TypeMessageSent)
	case EventThreadRead:
		return string(events.TypeThreadRead)
	default:
		return "unknown"
	}
}

// Event is sent to clients to tell them a conversation view is stale.
type Event struct {
	Kind       EventKind
	ListingID  string
	SenderID   string
	ReceiverID string
	MessageID  string
	Count      int64
	At         time.Time
}

func eventFrom(ev events.Event) (*Event, bool) {
	var kind EventKind
	switch ev.Type {
	case events.TypeMessageSent:
		kind = EventMessageSent
	case events.TypeThreadRead:
		kind = EventThreadRead
	default:
		return nil, false
	}
	return &Event{
		Kind:       kind,
		ListingID:  ev.ListingID,
		SenderID:   ev.SenderID,
		ReceiverID: ev.ReceiverID,
		MessageID:  ev.MessageID,
		Count:      ev.Count,
		At:         ev.At,
	}, true
}
