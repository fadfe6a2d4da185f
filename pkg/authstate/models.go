package authstate

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds how long a pending authorization may sit between the
// initiation redirect and the provider callback.
const DefaultTTL = 10 * time.Minute

// PendingAuth is a pending OAuth2 authorization attempt, keyed by the state
// token round-tripped through the provider. It lives only between the
// initiation and callback requests and is consumed exactly once.
type PendingAuth struct {
	State        string
	Provider     string
	CodeVerifier string
	// UserID is set only for account-linking flows, where the pending
	// authorization must be bound to an already-authenticated user.
	UserID    *uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (p *PendingAuth) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// NewStateToken generates an opaque state token from 32 bytes of
// cryptographically secure randomness, base64url encoded without padding.
func NewStateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
