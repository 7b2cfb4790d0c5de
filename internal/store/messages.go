package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageStore handles database operations for message history.
type MessageStore struct {
	DB *sql.DB
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{DB: db}
}

// Create persists a message and returns it with the sender's profile
// joined, matching what history queries return.
func (s *MessageStore) Create(ctx context.Context, sessionID, senderID uuid.UUID, content string) (*Message, error) {
	msg := &Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	insert := `INSERT INTO messages (id, session_id, sender_id, content, created_at)
	           VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, insert,
		msg.ID, msg.SessionID, msg.SenderID, msg.Content, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	sender := `SELECT id, name, picture FROM users WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, sender, senderID).Scan(
		&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Picture)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("joining sender profile: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("joining sender profile: %w", err)
	}

	return msg, nil
}

// ListBySession returns a session's messages in chronological order, each
// carrying the sender's id, name, and picture.
func (s *MessageStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	query := `SELECT m.id, m.session_id, m.sender_id, m.content, m.created_at,
	                 u.id, u.name, u.picture
	          FROM messages m
	          JOIN users u ON u.id = m.sender_id
	          WHERE m.session_id = $1
	          ORDER BY m.created_at ASC`
	rows, err := s.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.SenderID, &m.Content, &m.CreatedAt,
			&m.Sender.ID, &m.Sender.Name, &m.Sender.Picture); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
