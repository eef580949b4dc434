package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is wrapped by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// User represents a registered marketplace user.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Listing represents a balloon-decoration listing in the catalog.
type Listing struct {
	ID          string
	Title       string
	Description string
	EventType   string
	Colors      []string
	Images      []string
	Latitude    float64
	Longitude   float64
	Address     string
	CreatorID   string
	CreatorName string
	CreatedAt   time.Time
}

// CoverImage returns the first image of the listing, or nil when it has none.
func (l *Listing) CoverImage() *string {
	if l == nil || len(l.Images) == 0 {
		return nil
	}
	img := l.Images[0]
	return &img
}

// Message is a directed message between two users about one listing.
// Only Read ever changes after the row is appended.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	ListingID  string
	Content    string
	Read       bool
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with an already hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ListingStore handles listing persistence.
type ListingStore interface {
	// CreateListing persists a listing. ID and CreatedAt must be set by the caller.
	CreateListing(ctx context.Context, listing *Listing) error

	// GetListing retrieves a listing by ID.
	GetListing(ctx context.Context, id string) (*Listing, error)

	// ListListings returns all listings, newest first.
	ListListings(ctx context.Context) ([]*Listing, error)

	// DeleteListing removes a listing. Deleting a missing listing is not an error.
	DeleteListing(ctx context.Context, id string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a new unread message stamped with the current time.
	// Returns a *ValidationError when any field is empty.
	AppendMessage(ctx context.Context, senderID, receiverID, listingID, content string) (*Message, error)

	// FindByParticipant returns every message sent or received by userID, newest first.
	FindByParticipant(ctx context.Context, userID string) ([]*Message, error)

	// FindByConversation returns the messages between userID and otherUserID about
	// listingID in both directions, oldest first.
	FindByConversation(ctx context.Context, userID, listingID, otherUserID string) ([]*Message, error)

	// MarkRead flags unread messages from fromUserID to toUserID about listingID as read
	// and returns how many rows changed.
	MarkRead(ctx context.Context, listingID, fromUserID, toUserID string) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ListingStore
	MessageStore

	// Ping checks that the underlying database is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
