package messaging

import (
	"github.com/balloonhub/marketplace-server/internal/store"
)

// Conversation is a per-(listing, counterpart) summary of a user's messages.
type Conversation struct {
	ListingID     string
	ListingTitle  string
	ListingImage  *string
	OtherUserID   string
	OtherUserName string
	LastMessage   *store.Message
	UnreadCount   int
}

type conversationKey struct {
	listingID   string
	otherUserID string
}

// Aggregate groups messages involving userID into one conversation per
// (listing, counterpart) pair. Messages must be ordered newest first; the
// first message seen for a pair becomes its LastMessage and the output keeps
// first-seen order. UnreadCount counts unread messages addressed to userID.
// Listing and user display fields are left empty for the caller to resolve.
func Aggregate(messages []*store.Message, userID string) []Conversation {
	index := make(map[conversationKey]int)
	conversations := make([]Conversation, 0)

	for _, msg := range messages {
		other := msg.SenderID
		if other == userID {
			other = msg.ReceiverID
		}
		key := conversationKey{listingID: msg.ListingID, otherUserID: other}

		i, ok := index[key]
		if !ok {
			i = len(conversations)
			index[key] = i
			conversations = append(conversations, Conversation{
				ListingID:   msg.ListingID,
				OtherUserID: other,
				LastMessage: msg,
			})
		}
		if msg.ReceiverID == userID && !msg.Read {
			conversations[i].UnreadCount++
		}
	}

	return conversations
}
