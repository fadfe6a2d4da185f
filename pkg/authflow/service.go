package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/authstate"
	"github.com/kyle-compute/StravaTPOT/pkg/pkce"
	"github.com/kyle-compute/StravaTPOT/pkg/provider"
	"github.com/kyle-compute/StravaTPOT/pkg/sessions"
	"github.com/kyle-compute/StravaTPOT/pkg/user"
)

// ProviderClient performs the two outbound calls of the callback handler.
type ProviderClient interface {
	ExchangeCode(ctx context.Context, p *provider.Provider, code, codeVerifier string) (*provider.TokenResponse, error)
	FetchProfile(ctx context.Context, p *provider.Provider, accessToken string) (*provider.RemoteProfile, error)
}

// IdentityReconciler maps remote profiles onto local user records.
type IdentityReconciler interface {
	ReconcileX(ctx context.Context, profile *provider.RemoteProfile, tokens *provider.TokenResponse) (*user.User, error)
	LinkStrava(ctx context.Context, userID uuid.UUID, profile *provider.RemoteProfile, tokens *provider.TokenResponse) (*user.User, error)
}

// SessionIssuer issues access tokens for reconciled users.
type SessionIssuer interface {
	Create(ctx context.Context, u *user.User) (*sessions.SessionToken, error)
}

// AuthorizationRequest is what the initiator hands back to the client.
type AuthorizationRequest struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// LoginResult is the outcome of a successful callback. Token fields are
// set for the login flow only; the link flow keeps the caller's existing
// session.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        *user.User
}

// Service runs the authorization-code-with-PKCE flow end to end. Each
// login attempt pins a PendingAuth in the state store between the
// initiator and the callback.
type Service struct {
	states    authstate.Repository
	registry  *provider.Registry
	client    ProviderClient
	reconcile IdentityReconciler
	issuer    SessionIssuer
	stateTTL  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithStateTTL overrides how long a pending authorization stays
// consumable.
func WithStateTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.stateTTL = ttl
	}
}

// NewService creates the auth flow service.
func NewService(states authstate.Repository, registry *provider.Registry, client ProviderClient, reconcile IdentityReconciler, issuer SessionIssuer, opts ...Option) *Service {
	service := &Service{
		states:    states,
		registry:  registry,
		client:    client,
		reconcile: reconcile,
		issuer:    issuer,
		stateTTL:  authstate.DefaultTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// InitiateLogin starts a login attempt against the provider and returns
// the authorization URL the client should redirect to.
func (s *Service) InitiateLogin(ctx context.Context, providerID string) (*AuthorizationRequest, error) {
	return s.initiate(ctx, providerID, nil)
}

// InitiateLink starts an account-link attempt for an already
// authenticated user. The pending entry carries the user id so the
// callback knows whose account to link.
func (s *Service) InitiateLink(ctx context.Context, providerID string, userID uuid.UUID) (*AuthorizationRequest, error) {
	return s.initiate(ctx, providerID, &userID)
}

func (s *Service) initiate(ctx context.Context, providerID string, userID *uuid.UUID) (*AuthorizationRequest, error) {
	p, err := s.registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	pair, err := pkce.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE pair: %w", err)
	}
	state, err := authstate.NewStateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	now := time.Now()
	pending := &authstate.PendingAuth{
		State:        state,
		Provider:     providerID,
		CodeVerifier: pair.Verifier,
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.stateTTL),
	}
	if err := s.states.Store(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending authorization: %w", err)
	}

	authURL, err := p.BuildAuthURL(state, pair.Challenge)
	if err != nil {
		return nil, err
	}

	slog.Info("initiated authorization", "provider", providerID, "link", userID != nil)
	return &AuthorizationRequest{AuthURL: authURL, State: state}, nil
}

// HandleCallback runs the single-pass callback state machine: consume
// state, check the provider error, exchange the code, fetch the profile,
// reconcile or link, and issue a session. No step is retried; any failure
// requires the client to restart from the initiator.
func (s *Service) HandleCallback(ctx context.Context, providerID, code, state, errCode, errDescription string) (*LoginResult, error) {
	pending, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, authstate.ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}
	if pending.Provider != providerID {
		return nil, ErrInvalidState
	}

	if errCode != "" {
		return nil, ProviderDeniedError{Code: errCode, Description: errDescription}
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	p, err := s.registry.Get(providerID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.client.ExchangeCode(ctx, p, code, pending.CodeVerifier)
	if err != nil {
		return nil, TokenExchangeError{Err: err}
	}
	// Strava's token endpoint omits scope; fall back to what we asked for.
	if tokens.Scope == "" {
		tokens.Scope = p.ScopeString()
	}

	// A failure past this point discards the exchanged token; it is
	// never persisted without a reconciled identity.
	profile, err := s.client.FetchProfile(ctx, p, tokens.AccessToken)
	if err != nil {
		return nil, ProfileFetchError{Err: err}
	}

	if pending.UserID != nil {
		return s.completeLink(ctx, *pending.UserID, profile, tokens)
	}
	return s.completeLogin(ctx, providerID, profile, tokens)
}

func (s *Service) completeLogin(ctx context.Context, providerID string, profile *provider.RemoteProfile, tokens *provider.TokenResponse) (*LoginResult, error) {
	if providerID != provider.ProviderX {
		return nil, ErrLinkRequiresUser
	}

	u, err := s.reconcile.ReconcileX(ctx, profile, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile identity: %w", err)
	}

	sessionToken, err := s.issuer.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	slog.Info("login completed", "provider", providerID, "user_id", u.ID)
	return &LoginResult{
		AccessToken: sessionToken.Token,
		TokenType:   "bearer",
		ExpiresAt:   sessionToken.ExpiresAt,
		User:        u,
	}, nil
}

func (s *Service) completeLink(ctx context.Context, userID uuid.UUID, profile *provider.RemoteProfile, tokens *provider.TokenResponse) (*LoginResult, error) {
	u, err := s.reconcile.LinkStrava(ctx, userID, profile, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to link account: %w", err)
	}

	slog.Info("account linked", "provider", provider.ProviderStrava, "user_id", u.ID)
	return &LoginResult{User: u}, nil
}
