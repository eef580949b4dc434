package http

import (
	"net/http"
	"testing"
)

func TestListingCatalog(t *testing.T) {
	env := newTestEnv(t, testConfig(false))

	resp := env.do(t, http.MethodPost, "/api/listings", map[string]any{
		"title":       "Rainbow arch",
		"eventType":   "birthday",
		"colors":      []string{"red", "yellow"},
		"images":      []string{"https://img/arch.jpg"},
		"latitude":    40.71,
		"longitude":   -74.0,
		"creatorName": "alice",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	created := decode[ListingResponse](t, resp)
	if created.ID == "" || created.Title != "Rainbow arch" || len(created.Colors) != 2 {
		t.Fatalf("unexpected listing: %+v", created)
	}

	resp = env.do(t, http.MethodPost, "/api/listings", map[string]any{
		"title":       "No coordinates",
		"eventType":   "wedding",
		"creatorName": "bob",
	}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if got := decode[ErrorResponse](t, resp); got.Error != "latitude is required" {
		t.Errorf("unexpected error: %q", got.Error)
	}

	resp = env.do(t, http.MethodGet, "/api/listings", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if all := decode[[]ListingResponse](t, resp); len(all) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(all))
	}

	resp = env.do(t, http.MethodGet, "/api/listings/"+created.ID, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodDelete, "/api/listings/"+created.ID, nil, "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/api/listings/"+created.ID, nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
