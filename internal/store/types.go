package store

import (
	"time"

	"github.com/google/uuid"
)

// User is an account in the directory. PasswordHash is nil for federated
// sign-ins, which have no local password.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash *string
	Picture      *string
	CreatedAt    time.Time
}

// Session is a two-party chat session. The user pair is stored in canonical
// order so one row exists per pair regardless of who initiated it.
type Session struct {
	ID        uuid.UUID
	UserA     uuid.UUID
	UserB     uuid.UUID
	CreatedAt time.Time
}

// SenderProfile carries the sender fields joined onto a message row.
type SenderProfile struct {
	ID      uuid.UUID
	Name    string
	Picture *string
}

// Message is one persisted chat message with its sender's profile.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	SenderID  uuid.UUID
	Content   string
	CreatedAt time.Time
	Sender    SenderProfile
}

// canonicalPair orders a user pair deterministically so (a,b) and (b,a)
// address the same session row.
func canonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
