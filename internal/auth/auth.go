// Package auth issues and validates the opaque bearer credentials consumed
// by the HTTP API, and hashes account passwords. The relay never consumes
// these tokens; it trusts the caller-supplied user identifier.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for tokens that fail parsing, signature
// verification, or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

const defaultTTL = 7 * 24 * time.Hour

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Issuer signs and verifies HS256 tokens carrying a user identity.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer with the default 7-day token lifetime.
func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    defaultTTL,
		now:    time.Now,
	}
}

// NewIssuerWithTTL creates an Issuer with an explicit token lifetime.
func NewIssuerWithTTL(secret string, ttl time.Duration) *Issuer {
	i := NewIssuer(secret)
	if ttl > 0 {
		i.ttl = ttl
	}
	return i
}

// Issue signs a token identifying userID.
func (i *Issuer) Issue(userID string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns the user identity it carries.
func (i *Issuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
