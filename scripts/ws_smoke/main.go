package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/balloonhub/marketplace-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	sender := flag.String("sender", "smoke-sender", "sender user ID")
	receiver := flag.String("receiver", "smoke-receiver", "receiver user ID (websocket subscriber)")
	listing := flag.String("listing", "smoke-listing", "listing ID")
	text := flag.String("text", "hello from smoke test", "message content to send")
	token := flag.String("token", "", "bearer token when auth is required")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/api/ws/" + *receiver
	if *token != "" {
		wsURL += "?token=" + *token
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var ready proto.Outbound
	if err := wsjson.Read(ctx, conn, &ready); err != nil {
		return fmt.Errorf("read ready: %w", err)
	}
	fmt.Printf("Connected: type=%s\n", ready.Type)

	if err := postMessage(ctx, *base, *token, map[string]string{
		"senderId":   *sender,
		"receiverId": *receiver,
		"listingId":  *listing,
		"content":    *text,
	}); err != nil {
		return err
	}

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("Error: %s %s\n", outbound.Error.Code, outbound.Error.Msg)
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		if outbound.Event == proto.EventMessageSent {
			var evt proto.MessageSentData
			if unmarshalErr := json.Unmarshal(raw, &evt); unmarshalErr != nil {
				fmt.Printf("Raw data: %s\n", string(raw))
				return fmt.Errorf("unmarshal message.sent: %w", unmarshalErr)
			}
			fmt.Printf("MessageSent: listing=%s from=%s to=%s id=%s ts=%d\n",
				evt.ListingID, evt.SenderID, evt.ReceiverID, evt.MessageID, evt.TS)
			return nil
		}
	}
}

func postMessage(ctx context.Context, base, token string, body map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("post message: unexpected status %d", resp.StatusCode)
	}
	fmt.Println("Message posted")
	return nil
}
