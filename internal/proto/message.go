package proto

// ProtocolVersion is the version of the realtime notification envelope.
const ProtocolVersion = 1

const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
	OutboundTypeReady = "ready"

	EventMessageSent = "message.sent"
	EventThreadRead  = "thread.read"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ReadyData is sent once after the connection is registered.
type ReadyData struct {
	UserID   string `json:"userId"`
	Protocol int    `json:"protocol"`
}

// MessageSentData tells a participant that a conversation has a new message.
type MessageSentData struct {
	ListingID  string `json:"listingId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	MessageID  string `json:"messageId"`
	TS         int64  `json:"ts"`
}

// ThreadReadData tells the reader that incoming messages were marked read.
type ThreadReadData struct {
	ListingID   string `json:"listingId"`
	OtherUserID string `json:"otherUserId"`
	Count       int64  `json:"count"`
	TS          int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
