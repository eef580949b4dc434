package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/balloonhub/marketplace-server/internal/auth"
	"github.com/balloonhub/marketplace-server/internal/config"
	"github.com/balloonhub/marketplace-server/internal/core"
	"github.com/balloonhub/marketplace-server/internal/events"
	"github.com/balloonhub/marketplace-server/internal/service/listings"
	"github.com/balloonhub/marketplace-server/internal/service/messaging"
	"github.com/balloonhub/marketplace-server/internal/store"
	"github.com/balloonhub/marketplace-server/internal/store/sqlite"
)

type testEnv struct {
	store  *sqlite.SQLiteStore
	auth   *auth.Service
	hub    *core.Hub
	server *http.Server

	stopHub context.CancelFunc
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.UserStore, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig, bcrypt.MinCost)
}

func testConfig(authRequired bool) *config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.Auth.Required = authRequired
	cfg.Auth.JWTSecret = "test-secret"
	return &cfg
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, cfg.Auth.JWTSecret)
	disabledLogger := zerolog.New(nil)

	hub := core.NewHub(&disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	listingService := listings.New(st)
	fanout := events.NewFanout(&disabledLogger, hub)
	services := Services{
		Auth:      authService,
		Messaging: messaging.New(st, listingService, authService, fanout, &disabledLogger),
		Listings:  listingService,
	}

	return &testEnv{
		store:  st,
		auth:   authService,
		hub:    hub,
		server: NewServer(ctx, hub, services, st, cfg, &disabledLogger),

		stopHub: cancel,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) register(t *testing.T, username string) (string, *store.User) {
	t.Helper()

	token, user, err := e.auth.Register(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return token, user
}

func (e *testEnv) createListing(t *testing.T, id, title string, images ...string) {
	t.Helper()

	err := e.store.CreateListing(context.Background(), &store.Listing{
		ID:          id,
		Title:       title,
		EventType:   "birthday",
		Images:      images,
		CreatorName: "seller",
		CreatedAt:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed to create listing %s: %v", id, err)
	}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return out
}
