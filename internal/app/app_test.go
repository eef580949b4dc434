package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/config"
)

func TestOpenStoreIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.db")

	for i := 0; i < 2; i++ {
		st, err := OpenStore(context.Background(), path)
		if err != nil {
			t.Fatalf("OpenStore #%d failed: %v", i, err)
		}
		if err := st.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i, err)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "market.db")
	cfg.ShutdownTimeout = time.Second

	logger := zerolog.New(nil)
	application, err := New(&cfg, &logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
