package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/tokengenerator"
	"github.com/kyle-compute/StravaTPOT/pkg/user"
)

// ErrSessionInvalid is returned by Validate when the token is signed
// correctly but its session has been revoked or has expired.
var ErrSessionInvalid = errors.New("session revoked or expired")

// Service issues access tokens and validates them against the session
// store, so a token stops working the moment its session is revoked.
type Service struct {
	repository     Repository
	tokenGenerator tokengenerator.TokenGenerator
	tokenExpiry    time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTokenExpiry overrides the default access token lifetime.
func WithTokenExpiry(expiry time.Duration) Option {
	return func(s *Service) {
		s.tokenExpiry = expiry
	}
}

// NewService creates a session service.
func NewService(repository Repository, tokenGenerator tokengenerator.TokenGenerator, opts ...Option) *Service {
	service := &Service{
		repository:     repository,
		tokenGenerator: tokenGenerator,
		tokenExpiry:    tokengenerator.DefaultAccessTokenExpiry,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Create issues a signed access token for the user and records the
// backing session row.
func (s *Service) Create(ctx context.Context, u *user.User) (*SessionToken, error) {
	extraClaims := map[string]string{
		"x_username":     u.XUsername,
		"x_display_name": u.XDisplayName,
	}
	token, jti, expiresAt, err := s.tokenGenerator.GenerateToken(u.ID.String(), s.tokenExpiry, extraClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if _, err := s.repository.Create(ctx, u.ID, jti, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	return &SessionToken{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate checks the token signature and the backing session row and
// returns the authenticated user id.
func (s *Service) Validate(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	claims, err := s.tokenGenerator.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", err)
	}

	session, err := s.repository.GetByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return uuid.Nil, ErrSessionInvalid
		}
		return uuid.Nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.Active(time.Now()) {
		return uuid.Nil, ErrSessionInvalid
	}
	if session.UserID != userID {
		return uuid.Nil, ErrSessionInvalid
	}

	return userID, nil
}

// Revoke invalidates the session behind a token string. Revoking an
// already revoked session is a no-op.
func (s *Service) Revoke(ctx context.Context, tokenStr string) error {
	claims, err := s.tokenGenerator.ParseToken(tokenStr)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return s.repository.RevokeByJTI(ctx, claims.ID)
}

// RevokeAllForUser invalidates every active session of a user.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.repository.RevokeAllByUserID(ctx, userID)
}
