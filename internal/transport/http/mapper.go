package http

import (
	"time"

	"github.com/balloonhub/marketplace-server/internal/core"
	"github.com/balloonhub/marketplace-server/internal/proto"
	"github.com/balloonhub/marketplace-server/internal/service/messaging"
	"github.com/balloonhub/marketplace-server/internal/store"
)

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	ListingID  string    `json:"listingId"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConversationResponse represents a conversation summary in API responses.
type ConversationResponse struct {
	ListingID       string    `json:"listingId"`
	ListingTitle    string    `json:"listingTitle"`
	ListingImage    *string   `json:"listingImage"`
	OtherUserID     string    `json:"otherUserId"`
	OtherUserName   string    `json:"otherUserName"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

// ListingResponse represents a listing in API responses.
type ListingResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   string    `json:"eventType"`
	Colors      []string  `json:"colors"`
	Images      []string  `json:"images"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address"`
	CreatorID   string    `json:"creatorId,omitempty"`
	CreatorName string    `json:"creatorName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserResponse represents a public user profile in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		ListingID:  m.ListingID,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func toMessageResponses(msgs []*store.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toConversationResponses(convs []messaging.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		resp := ConversationResponse{
			ListingID:     c.ListingID,
			ListingTitle:  c.ListingTitle,
			ListingImage:  c.ListingImage,
			OtherUserID:   c.OtherUserID,
			OtherUserName: c.OtherUserName,
			UnreadCount:   c.UnreadCount,
		}
		if c.LastMessage != nil {
			resp.LastMessage = c.LastMessage.Content
			resp.LastMessageTime = c.LastMessage.CreatedAt.UTC()
		}
		out = append(out, resp)
	}
	return out
}

func toListingResponse(l *store.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		EventType:   l.EventType,
		Colors:      l.Colors,
		Images:      l.Images,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		Address:     l.Address,
		CreatorID:   l.CreatorID,
		CreatorName: l.CreatorName,
		CreatedAt:   l.CreatedAt.UTC(),
	}
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

// outboundFromEvent renders a hub event for the given connected user.
func outboundFromEvent(userID string, event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageSent:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageSent,
			Data: proto.MessageSentData{
				ListingID:  event.ListingID,
				SenderID:   event.SenderID,
				ReceiverID: event.ReceiverID,
				MessageID:  event.MessageID,
				TS:         event.At.Unix(),
			},
		}
	case core.EventThreadRead:
		other := event.SenderID
		if other == userID {
			other = event.ReceiverID
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventThreadRead,
			Data: proto.ThreadReadData{
				ListingID:   event.ListingID,
				OtherUserID: other,
				Count:       event.Count,
				TS:          event.At.Unix(),
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown_event", Msg: "unknown event"}}
	}
}
