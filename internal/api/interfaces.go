// Package api exposes the HTTP surface wrapping persistence and
// authentication: account signup/login, the user directory, session
// creation, and message history. The relay consumes none of this; clients
// call it independently of the real-time path.
package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/duochat/duochat/internal/auth"
	"github.com/duochat/duochat/internal/store"
)

// UserStore is the slice of the persistence layer the API needs for
// accounts and the directory.
type UserStore interface {
	Create(ctx context.Context, user *store.User) error
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*store.User, error)
	UpsertFederated(ctx context.Context, email, name string, picture *string) (*store.User, error)
	List(ctx context.Context, exclude uuid.UUID) ([]store.User, error)
}

// SessionStore is the slice of the persistence layer for two-party
// sessions.
type SessionStore interface {
	GetOrCreate(ctx context.Context, a, b uuid.UUID) (*store.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*store.Session, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]store.Session, error)
}

// MessageStore is the slice of the persistence layer for message history.
type MessageStore interface {
	Create(ctx context.Context, sessionID, senderID uuid.UUID, content string) (*store.Message, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]store.Message, error)
}

// TokenIssuer produces and validates the opaque bearer credential.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

// GoogleVerifier validates a federated ID token and returns the identity
// claims it carries. Nil when Google sign-in is not configured.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleIdentity, error)
}
