package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/balloonhub/marketplace-server/internal/store"
)

// CreateInput describes a new listing. Coordinates are pointers so that a
// missing value can be told apart from zero.
type CreateInput struct {
	Title       string
	Description string
	EventType   string
	Colors      []string
	Images      []string
	Latitude    *float64
	Longitude   *float64
	Address     string
	CreatorID   string
	CreatorName string
}

// Service provides the listing catalog.
type Service struct {
	store store.ListingStore
	now   func() time.Time
}

// New creates a listing service.
func New(st store.ListingStore) *Service {
	return &Service{
		store: st,
		now:   time.Now,
	}
}

// Create validates and stores a listing.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Listing, error) {
	if err := store.RequireFields(
		"title", in.Title,
		"eventType", in.EventType,
		"creatorName", in.CreatorName,
	); err != nil {
		return nil, err
	}
	if in.Latitude == nil {
		return nil, &store.ValidationError{Field: "latitude"}
	}
	if in.Longitude == nil {
		return nil, &store.ValidationError{Field: "longitude"}
	}
	if *in.Latitude < -90 || *in.Latitude > 90 {
		return nil, &store.ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if *in.Longitude < -180 || *in.Longitude > 180 {
		return nil, &store.ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}

	listing := &store.Listing{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		EventType:   strings.TrimSpace(in.EventType),
		Colors:      nonNil(in.Colors),
		Images:      nonNil(in.Images),
		Latitude:    *in.Latitude,
		Longitude:   *in.Longitude,
		Address:     in.Address,
		CreatorID:   in.CreatorID,
		CreatorName: in.CreatorName,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return listing, nil
}

// Get returns a listing by ID. The error wraps store.ErrNotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (*store.Listing, error) {
	return s.store.GetListing(ctx, id)
}

// GetListing lets the service act as the messaging listing lookup.
func (s *Service) GetListing(ctx context.Context, id string) (*store.Listing, error) {
	return s.Get(ctx, id)
}

// List returns every listing, newest first.
func (s *Service) List(ctx context.Context) ([]*store.Listing, error) {
	return s.store.ListListings(ctx)
}

// Delete removes a listing. Conversations about it remain.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteListing(ctx, id)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
