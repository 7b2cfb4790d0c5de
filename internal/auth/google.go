package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the subset of Google ID-token claims the application
// consumes.
type GoogleIdentity struct {
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates Google ID tokens against the application's OAuth
// client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier creates a verifier for tokens issued to clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify checks the token's signature, expiry, and audience, then returns
// the identity claims it carries. A token without an email claim is invalid;
// the app keys federated accounts by email.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*GoogleIdentity, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validating id token: %w", err)
	}

	identity := &GoogleIdentity{
		Email:   claimString(payload.Claims, "email"),
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}
	if identity.Email == "" {
		return nil, ErrInvalidToken
	}
	return identity, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
