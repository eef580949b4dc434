package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/events"
)

// Hub routes conversation events to the connected clients of each affected user.
// All state is owned by the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	publish    chan *Event
	count      chan countRequest
	done       chan struct{}

	rooms map[string]*Room
	log   *zerolog.Logger
}

type countRequest struct {
	userID string
	reply  chan int
}

var _ events.Publisher = (*Hub)(nil)

// NewHub creates a new hub. Call Run to start routing.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *Event),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
		rooms:      make(map[string]*Room),
		log:        logger,
	}
}

// Run processes registrations and events until ctx is cancelled.
// On exit every client's Events channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case ev := <-h.publish:
			h.dispatch(ev)
		case req := <-h.count:
			n := 0
			if room, ok := h.rooms[req.userID]; ok {
				n = room.Len()
			}
			req.reply <- n
		}
	}
}

// RegisterClient subscribes a client to events addressed to its user.
// Returns false if the hub has stopped.
func (h *Hub) RegisterClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient removes a client and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish routes the event to the connected clients of every affected user.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	event, ok := eventFrom(ev)
	if !ok {
		return nil
	}
	select {
	case h.publish <- event:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectedClients reports how many clients userID currently has.
func (h *Hub) ConnectedClients(ctx context.Context, userID string) (int, error) {
	req := countRequest{userID: userID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
	case <-h.done:
		return 0, ErrHubStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return <-req.reply, nil
}

func (h *Hub) addClient(c *Client) {
	room, ok := h.rooms[c.UserID]
	if !ok {
		room = NewRoom(c.UserID)
		h.rooms[c.UserID] = room
	}
	if room.AddClient(c) {
		h.log.Debug().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client registered")
	}
}

func (h *Hub) removeClient(c *Client) {
	room, ok := h.rooms[c.UserID]
	if !ok || !room.RemoveClient(c) {
		return
	}
	close(c.Events)
	if room.Empty() {
		delete(h.rooms, c.UserID)
	}
	h.log.Debug().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client unregistered")
}

func (h *Hub) dispatch(ev *Event) {
	for _, userID := range h.recipients(ev) {
		room, ok := h.rooms[userID]
		if !ok {
			continue
		}
		if dropped := room.Broadcast(ev); dropped > 0 {
			h.log.Warn().
				Str("user_id", userID).
				Str("event", ev.Kind.String()).
				Int("dropped", dropped).
				Msg("slow clients skipped")
		}
	}
}

func (h *Hub) recipients(ev *Event) []string {
	return events.Event{
		Type:       events.Type(ev.Kind.String()),
		SenderID:   ev.SenderID,
		ReceiverID: ev.ReceiverID,
	}.Recipients()
}

func (h *Hub) shutdown() {
	close(h.done)
	for userID, room := range h.rooms {
		for c := range room.clients {
			close(c.Events)
		}
		delete(h.rooms, userID)
	}
}
