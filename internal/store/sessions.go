package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStore handles database operations for two-party chat sessions.
type SessionStore struct {
	DB *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{DB: db}
}

// GetOrCreate returns the session for the unordered user pair, creating it
// on first contact.
func (s *SessionStore) GetOrCreate(ctx context.Context, a, b uuid.UUID) (*Session, error) {
	userA, userB := canonicalPair(a, b)

	session := &Session{}
	query := `SELECT id, user_a, user_b, created_at FROM chat_sessions
	          WHERE user_a = $1 AND user_b = $2`
	err := s.DB.QueryRowContext(ctx, query, userA, userB).Scan(
		&session.ID, &session.UserA, &session.UserB, &session.CreatedAt)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session = &Session{
		ID:        uuid.New(),
		UserA:     userA,
		UserB:     userB,
		CreatedAt: time.Now().UTC(),
	}
	// Concurrent first contact between the same pair resolves through the
	// unique constraint; the loser re-reads the winner's row.
	insert := `INSERT INTO chat_sessions (id, user_a, user_b, created_at)
	           VALUES ($1, $2, $3, $4)
	           ON CONFLICT (user_a, user_b) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, insert,
		session.ID, session.UserA, session.UserB, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	err = s.DB.QueryRowContext(ctx, query, userA, userB).Scan(
		&session.ID, &session.UserA, &session.UserB, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("re-reading session: %w", err)
	}
	return session, nil
}

// GetByID retrieves a session by id, or ErrNotFound.
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	session := &Session{}
	query := `SELECT id, user_a, user_b, created_at FROM chat_sessions WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserA, &session.UserB, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying session by id: %w", err)
	}
	return session, nil
}

// ListForUser returns every session the user participates in, newest first.
func (s *SessionStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	query := `SELECT id, user_a, user_b, created_at FROM chat_sessions
	          WHERE user_a = $1 OR user_b = $1 ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserA, &sess.UserB, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
