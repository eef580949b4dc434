package core

const defaultClientBuffer = 16

// Client is one realtime connection of a user.
type Client struct {
	ID     string
	UserID string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
// A non-positive buffer uses the default size.
func NewClient(id, userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:     id,
		UserID: userID,
		Events: make(chan *Event, buffer),
	}
}
