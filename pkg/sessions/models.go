package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Session is the durable record behind one issued access token, keyed by
// the token's JWT ID. A token is only honored while its session row is
// unrevoked and unexpired.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	JTI       string     `json:"jti"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the session is honored at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionToken is what the callback handler returns to the client after a
// successful login.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
