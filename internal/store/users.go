package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UserStore handles database operations for users.
type UserStore struct {
	DB *sql.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{DB: db}
}

// Create inserts a new user. Returns ErrDuplicateEmail when the email is
// taken.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, email, name, password_hash, picture, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Picture, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email. A missing user is not an
// application error; it returns (nil, nil).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	query := `SELECT id, email, name, password_hash, picture, created_at
	          FROM users WHERE email = $1`
	err := s.DB.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Picture, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	query := `SELECT id, email, name, password_hash, picture, created_at
	          FROM users WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Picture, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

// UpsertFederated creates the account for a federated identity on first
// sign-in, or refreshes its name and picture when the provider reports a new
// picture. Federated accounts carry no password hash.
func (s *UserStore) UpsertFederated(ctx context.Context, email, name string, picture *string) (*User, error) {
	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if picture == nil || (existing.Picture != nil && *existing.Picture == *picture) {
			return existing, nil
		}
		update := `UPDATE users SET name = $1, picture = $2 WHERE id = $3`
		if _, err := s.DB.ExecContext(ctx, update, name, picture, existing.ID); err != nil {
			return nil, fmt.Errorf("updating federated user: %w", err)
		}
		existing.Name = name
		existing.Picture = picture
		return existing, nil
	}

	user := &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns the user directory, excluding the given user, ordered by
// name.
func (s *UserStore) List(ctx context.Context, exclude uuid.UUID) ([]User, error) {
	query := `SELECT id, email, name, picture, created_at
	          FROM users WHERE id <> $1 ORDER BY name ASC`
	rows, err := s.DB.QueryContext(ctx, query, exclude)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
