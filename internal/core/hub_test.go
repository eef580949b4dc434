package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/balloonhub/marketplace-server/internal/events"
)

func TestHubMessageSentReachesBothParticipants(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	alice := NewClient("a", "u1", 0)
	bob := NewClient("b", "u2", 0)
	carol := NewClient("c", "u3", 0)
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	hub.RegisterClient(carol)

	err := hub.Publish(ctx, events.Event{
		Type:       events.TypeMessageSent,
		ListingID:  "l1",
		SenderID:   "u1",
		ReceiverID: "u2",
		MessageID:  "m1",
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventMessageSent)
		if ev.MessageID != "m1" || ev.ListingID != "l1" {
			t.Fatalf("unexpected event for %s: %+v", c.UserID, ev)
		}
	}
	mustNoEvent(t, carol.Events)
}

func TestHubThreadReadReachesReaderOnly(t *testing.T) {
	hub, _ := startHub(t)

	reader := NewClient("a", "u1", 0)
	counterpart := NewClient("b", "u2", 0)
	hub.RegisterClient(reader)
	hub.RegisterClient(counterpart)

	err := hub.Publish(context.Background(), events.Event{
		Type:       events.TypeThreadRead,
		ListingID:  "l1",
		SenderID:   "u2",
		ReceiverID: "u1",
		Count:      3,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	ev := mustEvent(t, reader.Events, EventThreadRead)
	if ev.Count != 3 {
		t.Fatalf("expected count 3, got %d", ev.Count)
	}
	mustNoEvent(t, counterpart.Events)
}

func TestHubMultipleConnectionsPerUser(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	phone := NewClient("phone", "u1", 0)
	laptop := NewClient("laptop", "u1", 0)
	hub.RegisterClient(phone)
	hub.RegisterClient(laptop)

	n, err := hub.ConnectedClients(ctx, "u1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 clients, got %d (%v)", n, err)
	}

	hub.UnregisterClient(phone)
	if _, ok := <-phone.Events; ok {
		t.Fatalf("expected unregistered client channel to be closed")
	}

	if err := hub.Publish(ctx, events.Event{Type: events.TypeMessageSent, SenderID: "u2", ReceiverID: "u1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	mustEvent(t, laptop.Events, EventMessageSent)

	// Unregistering twice is a no-op.
	hub.UnregisterClient(phone)
}

func TestHubDropsEventsForSlowClients(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	slow := NewClient("slow", "u1", 1)
	hub.RegisterClient(slow)

	for i := 0; i < 3; i++ {
		if err := hub.Publish(ctx, events.Event{Type: events.TypeMessageSent, SenderID: "u2", ReceiverID: "u1"}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	// Synchronize with the run loop before inspecting the buffer.
	if _, err := hub.ConnectedClients(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	if got := len(slow.Events); got != 1 {
		t.Fatalf("expected buffer to hold 1 event, got %d", got)
	}
}

func TestHubStopped(t *testing.T) {
	hub, cancel := startHub(t)

	c := NewClient("a", "u1", 0)
	hub.RegisterClient(c)
	cancel()

	select {
	case _, ok := <-c.Events:
		if ok {
			t.Fatalf("expected closed channel after shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client channel not closed after shutdown")
	}

	err := hub.Publish(context.Background(), events.Event{Type: events.TypeMessageSent, SenderID: "u1", ReceiverID: "u2"})
	if err != nil && !errors.Is(err, ErrHubStopped) {
		t.Fatalf("expected nil or ErrHubStopped, got %v", err)
	}
	if hub.RegisterClient(NewClient("b", "u2", 0)) {
		t.Fatalf("expected registration to fail after shutdown")
	}
}
