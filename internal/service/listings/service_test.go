package listings

import (
	"context"
	"errors"
	"testing"

	"github.com/balloonhub/marketplace-server/internal/store"
	"github.com/balloonhub/marketplace-server/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st)
}

func ptr(f float64) *float64 { return &f }

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	valid := CreateInput{
		Title:       "Rainbow arch",
		EventType:   "birthday",
		Latitude:    ptr(40.7),
		Longitude:   ptr(-74.0),
		CreatorName: "alice",
	}

	tests := []struct {
		name      string
		mutate    func(in *CreateInput)
		wantField string
	}{
		{"missing title", func(in *CreateInput) { in.Title = "" }, "title"},
		{"missing event type", func(in *CreateInput) { in.EventType = " " }, "eventType"},
		{"missing creator", func(in *CreateInput) { in.CreatorName = "" }, "creatorName"},
		{"missing latitude", func(in *CreateInput) { in.Latitude = nil }, "latitude"},
		{"latitude out of range", func(in *CreateInput) { in.Latitude = ptr(91) }, "latitude"},
		{"longitude out of range", func(in *CreateInput) { in.Longitude = ptr(-181) }, "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			var vErr *store.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, vErr.Field)
			}
		})
	}
}

func TestCreateGetDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Title:       "Gold garland",
		EventType:   "wedding",
		Images:      []string{"https://img/garland.jpg"},
		Latitude:    ptr(0),
		Longitude:   ptr(0),
		CreatorName: "bob",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp: %+v", created)
	}
	if created.Colors == nil {
		t.Errorf("expected empty colors slice, got nil")
	}

	got, err := svc.GetListing(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetListing failed: %v", err)
	}
	if got.Title != "Gold garland" || got.Latitude != 0 {
		t.Errorf("unexpected listing: %+v", got)
	}

	all, err := svc.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("List: %v (%d listings)", err, len(all))
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
