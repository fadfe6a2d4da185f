package user

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/provider"
)

// defaultTokenLifetime is assumed when a provider omits expires_in.
const defaultTokenLifetime = 2 * time.Hour

// Service is the identity reconciler: it maps remote profiles onto local
// users and keeps the stored provider authorizations fresh, encrypting
// token material before it reaches the repository.
type Service struct {
	repository Repository
	encryptor  *EncryptionService
}

// NewService creates a user service.
func NewService(repository Repository, encryptor *EncryptionService) *Service {
	return &Service{
		repository: repository,
		encryptor:  encryptor,
	}
}

// GetByID returns the user with the given id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repository.GetByID(ctx, id)
}

// GetByXUserID returns the user owning the given X.com remote id.
func (s *Service) GetByXUserID(ctx context.Context, xUserID string) (*User, error) {
	return s.repository.GetByXUserID(ctx, xUserID)
}

// ReconcileX maps an X.com profile to a local user: find by remote id,
// create on first sight, and upsert the stored authorization. Reconnects
// keep the cached profile fields.
func (s *Service) ReconcileX(ctx context.Context, profile *provider.RemoteProfile, tokens *provider.TokenResponse) (*User, error) {
	auth, err := s.encryptTokens(provider.ProviderX, tokens)
	if err != nil {
		return nil, err
	}

	u, err := s.repository.ReconcileX(ctx, ReconcileXParams{
		XUserID:           profile.RemoteID,
		XUsername:         profile.Handle,
		XDisplayName:      profile.DisplayName,
		ProfilePictureURL: profile.AvatarURL,
		Authorization:     *auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile x identity: %w", err)
	}

	slog.Info("Reconciled X identity", "user_id", u.ID, "x_user_id", u.XUserID, "handle", u.XUsername)
	return u, nil
}

// LinkStrava binds a Strava athlete to an authenticated user and queues
// the historical activity backfill.
func (s *Service) LinkStrava(ctx context.Context, userID uuid.UUID, profile *provider.RemoteProfile, tokens *provider.TokenResponse) (*User, error) {
	athleteID, err := strconv.ParseInt(profile.RemoteID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid strava athlete id %q: %w", profile.RemoteID, err)
	}

	auth, err := s.encryptTokens(provider.ProviderStrava, tokens)
	if err != nil {
		return nil, err
	}

	u, err := s.repository.LinkStrava(ctx, LinkStravaParams{
		UserID:          userID,
		StravaAthleteID: athleteID,
		Authorization:   *auth,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Linked Strava account", "user_id", u.ID, "athlete_id", athleteID, "backfill_status", u.BackfillStatus)
	return u, nil
}

// Authorization returns the decrypted tokens stored for a (user,
// provider) pair.
func (s *Service) Authorization(ctx context.Context, userID uuid.UUID, providerID string) (*AuthTokens, error) {
	auth, err := s.repository.GetAuthorization(ctx, userID, providerID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.encryptor.Decrypt(auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	tokens := &AuthTokens{
		AccessToken: accessToken,
		ExpiresAt:   auth.ExpiresAt,
		Scopes:      auth.Scopes,
	}
	if auth.RefreshToken != nil {
		refreshToken, err := s.encryptor.Decrypt(*auth.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (s *Service) encryptTokens(providerID string, tokens *provider.TokenResponse) (*AuthorizationParams, error) {
	accessToken, err := s.encryptor.Encrypt(tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	params := &AuthorizationParams{
		Provider:    providerID,
		AccessToken: accessToken,
		Scopes:      tokens.Scope,
	}

	if tokens.RefreshToken != "" {
		refreshToken, err := s.encryptor.Encrypt(tokens.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		params.RefreshToken = &refreshToken
	}

	lifetime := defaultTokenLifetime
	if tokens.ExpiresIn > 0 {
		lifetime = time.Duration(tokens.ExpiresIn) * time.Second
	}
	expiresAt := time.Now().UTC().Add(lifetime)
	params.ExpiresAt = &expiresAt

	return params, nil
}
