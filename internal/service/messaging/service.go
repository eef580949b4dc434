package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/balloonhub/marketplace-server/internal/events"
	"github.com/balloonhub/marketplace-server/internal/store"
)

const (
	// UnknownListingTitle is shown when a conversation's listing no longer exists.
	UnknownListingTitle = "Unknown Listing"
	// UnknownUserName is shown when the counterpart no longer exists.
	UnknownUserName = "Unknown User"

	lookupConcurrency = 8
)

// ListingLookup resolves listing display metadata.
type ListingLookup interface {
	GetListing(ctx context.Context, id string) (*store.Listing, error)
}

// UserLookup resolves user display names.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*store.User, error)
}

// SendInput carries a new outgoing message.
type SendInput struct {
	SenderID   string
	ReceiverID string
	ListingID  string
	Content    string
}

// Service implements conversation listing, thread reading and message submission.
type Service struct {
	messages  store.MessageStore
	listings  ListingLookup
	users     UserLookup
	publisher events.Publisher
	log       *zerolog.Logger
	now       func() time.Time
}

// New creates a messaging service. publisher may be nil.
func New(messages store.MessageStore, listings ListingLookup, users UserLookup, publisher events.Publisher, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		messages:  messages,
		listings:  listings,
		users:     users,
		publisher: publisher,
		log:       logger,
		now:       time.Now,
	}
}

// Conversations returns userID's conversations, most recently active first,
// with listing and counterpart display fields resolved.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	msgs, err := s.messages.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find messages for %s: %w", userID, err)
	}

	conversations := Aggregate(msgs, userID)
	if len(conversations) == 0 {
		return conversations, nil
	}

	listings, users := s.resolve(ctx, conversations)
	for i := range conversations {
		c := &conversations[i]
		if l, ok := listings[c.ListingID]; ok {
			c.ListingTitle = l.Title
			c.ListingImage = l.CoverImage()
		} else {
			c.ListingTitle = UnknownListingTitle
		}
		if u, ok := users[c.OtherUserID]; ok {
			c.OtherUserName = u.Username
		} else {
			c.OtherUserName = UnknownUserName
		}
	}
	return conversations, nil
}

// resolve looks up each distinct listing and counterpart once. Failed lookups
// are left out of the result so callers fall back to placeholder text.
func (s *Service) resolve(ctx context.Context, conversations []Conversation) (map[string]*store.Listing, map[string]*store.User) {
	listingIDs := make(map[string]struct{})
	userIDs := make(map[string]struct{})
	for _, c := range conversations {
		listingIDs[c.ListingID] = struct{}{}
		userIDs[c.OtherUserID] = struct{}{}
	}

	var mu sync.Mutex
	listings := make(map[string]*store.Listing, len(listingIDs))
	users := make(map[string]*store.User, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)

	if s.listings != nil {
		for id := range listingIDs {
			g.Go(func() error {
				l, err := s.listings.GetListing(gctx, id)
				if err != nil {
					s.logLookupFailure(err, "listing_id", id)
					return nil
				}
				mu.Lock()
				listings[id] = l
				mu.Unlock()
				return nil
			})
		}
	}
	if s.users != nil {
		for id := range userIDs {
			g.Go(func() error {
				u, err := s.users.GetUserByID(gctx, id)
				if err != nil {
					s.logLookupFailure(err, "user_id", id)
					return nil
				}
				mu.Lock()
				users[id] = u
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	return listings, users
}

func (s *Service) logLookupFailure(err error, key, id string) {
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug().Str(key, id).Msg("display lookup: not found")
		return
	}
	s.log.Warn().Err(err).Str(key, id).Msg("display lookup failed, using fallback")
}

// OpenThread marks every unread message from otherUserID to userID about
// listingID as read, then returns the whole thread oldest first.
func (s *Service) OpenThread(ctx context.Context, userID, listingID, otherUserID string) ([]*store.Message, error) {
	n, err := s.messages.MarkRead(ctx, listingID, otherUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("mark thread read: %w", err)
	}

	thread, err := s.messages.FindByConversation(ctx, userID, listingID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("find thread: %w", err)
	}

	if n > 0 {
		s.publish(ctx, events.Event{
			Type:       events.TypeThreadRead,
			ListingID:  listingID,
			SenderID:   otherUserID,
			ReceiverID: userID,
			Count:      n,
			At:         s.now().UTC(),
		})
	}
	return thread, nil
}

// Send validates and appends a message, then announces it to both participants.
func (s *Service) Send(ctx context.Context, in SendInput) (*store.Message, error) {
	if err := store.RequireFields(
		"senderId", in.SenderID,
		"receiverId", in.ReceiverID,
		"listingId", in.ListingID,
		"content", in.Content,
	); err != nil {
		return nil, err
	}
	if in.SenderID == in.ReceiverID {
		return nil, &store.ValidationError{Field: "receiverId", Reason: "must differ from senderId"}
	}

	msg, err := s.messages.AppendMessage(ctx, in.SenderID, in.ReceiverID, in.ListingID, in.Content)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeMessageSent,
		ListingID:  msg.ListingID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		MessageID:  msg.ID,
		At:         msg.CreatedAt,
	})
	return msg, nil
}

// publish never fails the caller: the change is already durable.
func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event", string(ev.Type)).
			Str("listing_id", ev.ListingID).
			Msg("failed to publish conversation event")
	}
}
