package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/balloonhub/marketplace-server/internal/store"
)

// ==== ListingStore implementation ====

// CreateListing persists a listing. Colors and images are stored as JSON arrays.
func (s *SQLiteStore) CreateListing(ctx context.Context, listing *store.Listing) error {
	colors, err := encodeList(listing.Colors)
	if err != nil {
		return fmt.Errorf("encode colors: %w", err)
	}
	images, err := encodeList(listing.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	query := `
		INSERT INTO listings (id, title, description, event_type, colors, images,
			latitude, longitude, address, creator_id, creator_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		listing.ID,
		listing.Title,
		listing.Description,
		listing.EventType,
		colors,
		images,
		listing.Latitude,
		listing.Longitude,
		listing.Address,
		listing.CreatorID,
		listing.CreatorName,
		listing.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert listing %s: %w", listing.ID, store.ErrConflict)
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetListing retrieves a listing by ID.
func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*store.Listing, error) {
	query := `
		SELECT id, title, description, event_type, colors, images,
			latitude, longitude, address, creator_id, creator_name, created_at
		FROM listings
		WHERE id = ?
	`
	listing, err := scanListing(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query listing: %w", err)
	}
	return listing, nil
}

// ListListings returns all listings, newest first.
func (s *SQLiteStore) ListListings(ctx context.Context) ([]*store.Listing, error) {
	query := `
		SELECT id, title, description, event_type, colors, images,
			latitude, longitude, address, creator_id, creator_name, created_at
		FROM listings
		ORDER BY created_at DESC, rowid DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	listings := make([]*store.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, listing)
	}

	return listings, rows.Err()
}

// DeleteListing removes a listing. Messages that reference it are kept.
func (s *SQLiteStore) DeleteListing(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*store.Listing, error) {
	var listing store.Listing
	var colors, images string
	if err := row.Scan(
		&listing.ID,
		&listing.Title,
		&listing.Description,
		&listing.EventType,
		&colors,
		&images,
		&listing.Latitude,
		&listing.Longitude,
		&listing.Address,
		&listing.CreatorID,
		&listing.CreatorName,
		&listing.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(colors), &listing.Colors); err != nil {
		return nil, fmt.Errorf("decode colors: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &listing.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return &listing, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
