package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/events"
	"github.com/balloonhub/marketplace-server/internal/store"
	"github.com/balloonhub/marketplace-server/internal/store/sqlite"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type failingListings struct{}

func (failingListings) GetListing(context.Context, string) (*store.Listing, error) {
	return nil, errors.New("catalog unavailable")
}

type fixture struct {
	store     *sqlite.SQLiteStore
	service   *Service
	publisher *recordingPublisher
	u1, u2    *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	ctx := context.Background()
	u1, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create u1: %v", err)
	}
	u2, err := st.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create u2: %v", err)
	}
	err = st.CreateListing(ctx, &store.Listing{
		ID:        "l1",
		Title:     "Rainbow arch",
		EventType: "birthday",
		Images:    []string{"https://img/arch.jpg"},
		CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}

	logger := zerolog.New(nil)
	pub := &recordingPublisher{}
	return &fixture{
		store:     st,
		service:   New(st, st, st, pub, &logger),
		publisher: pub,
		u1:        u1,
		u2:        u2,
	}
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		in        SendInput
		wantField string
	}{
		{"empty sender", SendInput{ReceiverID: "u2", ListingID: "l1", Content: "hi"}, "senderId"},
		{"empty content", SendInput{SenderID: "u1", ReceiverID: "u2", ListingID: "l1"}, "content"},
		{"self message", SendInput{SenderID: "u1", ReceiverID: "u1", ListingID: "l1", Content: "hi"}, "receiverId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Send(ctx, tc.in)
			var vErr *store.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.wantField {
				t.Errorf("expected field %s, got %s", tc.wantField, vErr.Field)
			}
		})
	}

	if got := f.publisher.snapshot(); len(got) != 0 {
		t.Errorf("expected no events for rejected sends, got %d", len(got))
	}

	msg, err := f.service.Send(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", ListingID: "l1", Content: "hi"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.ID == "" {
		t.Errorf("expected generated id")
	}
}

func TestEndToEnd_ConversationAndReadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1, u2 := f.u1.ID, f.u2.ID

	if _, err := f.service.Send(ctx, SendInput{SenderID: u1, ReceiverID: u2, ListingID: "l1", Content: "Hello"}); err != nil {
		t.Fatalf("send Hello: %v", err)
	}
	if _, err := f.service.Send(ctx, SendInput{SenderID: u2, ReceiverID: u1, ListingID: "l1", Content: "Hi back"}); err != nil {
		t.Fatalf("send Hi back: %v", err)
	}

	convs, err := f.service.Conversations(ctx, u1)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	c := convs[0]
	if c.ListingID != "l1" || c.OtherUserID != u2 {
		t.Errorf("unexpected key %s/%s", c.ListingID, c.OtherUserID)
	}
	if c.LastMessage.Content != "Hi back" {
		t.Errorf("expected last message 'Hi back', got %q", c.LastMessage.Content)
	}
	if c.UnreadCount != 1 {
		t.Errorf("expected unread 1, got %d", c.UnreadCount)
	}
	if c.ListingTitle != "Rainbow arch" || c.ListingImage == nil || *c.ListingImage != "https://img/arch.jpg" {
		t.Errorf("unexpected listing display fields: %q %v", c.ListingTitle, c.ListingImage)
	}
	if c.OtherUserName != "bob" {
		t.Errorf("expected counterpart name bob, got %q", c.OtherUserName)
	}

	thread, err := f.service.OpenThread(ctx, u1, "l1", u2)
	if err != nil {
		t.Fatalf("OpenThread failed: %v", err)
	}
	if len(thread) != 2 || thread[0].Content != "Hello" || thread[1].Content != "Hi back" {
		t.Fatalf("unexpected thread: %+v", thread)
	}
	if !thread[1].Read {
		t.Errorf("expected incoming message to be returned as read")
	}
	if thread[0].Read {
		t.Errorf("expected outgoing message to stay unread")
	}

	again, err := f.service.OpenThread(ctx, u1, "l1", u2)
	if err != nil {
		t.Fatalf("second OpenThread failed: %v", err)
	}
	if len(again) != len(thread) {
		t.Fatalf("expected identical thread on reopen")
	}
	for i := range thread {
		if again[i].ID != thread[i].ID || again[i].Read != thread[i].Read || !again[i].CreatedAt.Equal(thread[i].CreatedAt) {
			t.Errorf("message %d changed across reopen", i)
		}
	}

	convs, err = f.service.Conversations(ctx, u1)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if convs[0].UnreadCount != 0 {
		t.Errorf("expected unread 0 after opening, got %d", convs[0].UnreadCount)
	}

	var sent, read int
	for _, ev := range f.publisher.snapshot() {
		switch ev.Type {
		case events.TypeMessageSent:
			sent++
		case events.TypeThreadRead:
			read++
			if ev.ReceiverID != u1 || ev.SenderID != u2 || ev.Count != 1 {
				t.Errorf("unexpected thread.read event: %+v", ev)
			}
		}
	}
	if sent != 2 || read != 1 {
		t.Errorf("expected 2 message.sent and 1 thread.read, got %d and %d", sent, read)
	}
}

func TestConversations_MissingCollaborators(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Send(ctx, SendInput{SenderID: f.u1.ID, ReceiverID: "ghost", ListingID: "l1", Content: "anyone?"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := f.store.DeleteListing(ctx, "l1"); err != nil {
		t.Fatalf("delete listing: %v", err)
	}

	convs, err := f.service.Conversations(ctx, f.u1.ID)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected conversation to survive listing deletion, got %d", len(convs))
	}
	if convs[0].ListingTitle != UnknownListingTitle || convs[0].ListingImage != nil {
		t.Errorf("expected listing fallback, got %q %v", convs[0].ListingTitle, convs[0].ListingImage)
	}
	if convs[0].OtherUserName != UnknownUserName {
		t.Errorf("expected user fallback, got %q", convs[0].OtherUserName)
	}
}

func TestConversations_LookupErrorsDegrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Send(ctx, SendInput{SenderID: f.u1.ID, ReceiverID: f.u2.ID, ListingID: "l1", Content: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	logger := zerolog.New(nil)
	svc := New(f.store, failingListings{}, f.store, nil, &logger)
	convs, err := svc.Conversations(ctx, f.u1.ID)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if convs[0].ListingTitle != UnknownListingTitle {
		t.Errorf("expected fallback title, got %q", convs[0].ListingTitle)
	}
	if convs[0].OtherUserName != "bob" {
		t.Errorf("expected resolved name bob, got %q", convs[0].OtherUserName)
	}
}

func TestSend_PublisherFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	msg, err := f.service.Send(context.Background(), SendInput{SenderID: f.u1.ID, ReceiverID: f.u2.ID, ListingID: "l1", Content: "hi"})
	if err != nil {
		t.Fatalf("expected send to succeed despite publisher error, got %v", err)
	}

	thread, err := f.store.FindByConversation(context.Background(), f.u1.ID, "l1", f.u2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 1 || thread[0].ID != msg.ID {
		t.Errorf("expected message to be stored")
	}
}

func TestOpenThread_NoUnreadPublishesNothing(t *testing.T) {
	f := newFixture(t)

	thread, err := f.service.OpenThread(context.Background(), f.u1.ID, "l1", f.u2.ID)
	if err != nil {
		t.Fatalf("OpenThread failed: %v", err)
	}
	if len(thread) != 0 {
		t.Errorf("expected empty thread, got %d", len(thread))
	}
	if got := f.publisher.snapshot(); len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}
