package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/balloonhub/marketplace-server/internal/store"
)

// ==== MessageStore implementation ====

// AppendMessage persists a new unread message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, senderID, receiverID, listingID, content string) (*store.Message, error) {
	if err := store.RequireFields(
		"senderId", senderID,
		"receiverId", receiverID,
		"listingId", listingID,
		"content", content,
	); err != nil {
		return nil, err
	}

	msg := &store.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Content:    content,
		Read:       false,
		CreatedAt:  s.timestamp(),
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, listing_id, content, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.ListingID,
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// FindByParticipant returns every message sent or received by userID, newest first.
func (s *SQLiteStore) FindByParticipant(ctx context.Context, userID string) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, listing_id, content, read, created_at
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return scanMessages(rows)
}

// FindByConversation returns the thread between two users about a listing, oldest first.
func (s *SQLiteStore) FindByConversation(ctx context.Context, userID, listingID, otherUserID string) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, listing_id, content, read, created_at
		FROM messages
		WHERE listing_id = ?
		  AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, listingID, userID, otherUserID, otherUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("query thread: %w", err)
	}
	return scanMessages(rows)
}

// MarkRead flags unread messages from fromUserID to toUserID about listingID as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, listingID, fromUserID, toUserID string) (int64, error) {
	query := `
		UPDATE messages
		SET read = 1
		WHERE listing_id = ? AND sender_id = ? AND receiver_id = ? AND read = 0
	`
	result, err := s.db.ExecContext(ctx, query, listingID, fromUserID, toUserID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func scanMessages(rows *sql.Rows) ([]*store.Message, error) {
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.ListingID,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
