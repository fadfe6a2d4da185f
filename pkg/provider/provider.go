package provider

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kyle-compute/StravaTPOT/pkg/pkce"
)

// ErrNotConfigured is returned by Registry.Get for a provider that was
// never registered, typically because its credentials are missing.
var ErrNotConfigured = errors.New("provider not configured")

// Well-known provider IDs. The IDs double as URL path segments and as the
// provider column in provider_authorizations.
const (
	ProviderX      = "x"
	ProviderStrava = "strava"
)

// Provider holds the OAuth2 configuration for one external provider.
type Provider struct {
	ID           string
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	RedirectURI  string
	Scopes       []string
}

// Validate checks that the provider carries everything the authorization
// flow needs. A failure here is a server configuration fault, never a
// client error.
func (p *Provider) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("provider ID is required")
	}
	if p.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if p.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if p.RedirectURI == "" {
		return fmt.Errorf("redirect URI is required")
	}
	if p.AuthURL == "" {
		return fmt.Errorf("authorization URL is required")
	}
	if p.TokenURL == "" {
		return fmt.Errorf("token URL is required")
	}
	if p.ProfileURL == "" {
		return fmt.Errorf("profile URL is required")
	}

	if _, err := url.Parse(p.AuthURL); err != nil {
		return fmt.Errorf("invalid authorization URL: %w", err)
	}
	if _, err := url.Parse(p.TokenURL); err != nil {
		return fmt.Errorf("invalid token URL: %w", err)
	}
	if _, err := url.Parse(p.ProfileURL); err != nil {
		return fmt.Errorf("invalid profile URL: %w", err)
	}
	return nil
}

// BuildAuthURL builds the provider authorization URL with the state token
// and PKCE challenge for one login attempt.
func (p *Provider) BuildAuthURL(state, codeChallenge string) (string, error) {
	authURL, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid auth URL: %w", err)
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", p.RedirectURI)
	params.Set("state", state)
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", pkce.ChallengeMethodS256)
	if len(p.Scopes) > 0 {
		params.Set("scope", strings.Join(p.Scopes, " "))
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// ScopeString returns the configured scopes in the space-separated wire
// format, used as the fallback when a token response omits its scope.
func (p *Provider) ScopeString() string {
	return strings.Join(p.Scopes, " ")
}

// Registry is a fixed set of configured providers, keyed by ID. Providers
// with missing credentials are simply not registered; looking them up
// fails as a configuration fault.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry validates and registers the given providers.
func NewRegistry(providers ...*Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Provider)}
	for _, p := range providers {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration for provider %q: %w", p.ID, err)
		}
		if _, exists := r.providers[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider: %s", p.ID)
		}
		copy := *p
		r.providers[p.ID] = &copy
	}
	return r, nil
}

// Get returns the provider with the given ID, or an error when it was
// never configured.
func (r *Registry) Get(providerID string) (*Provider, error) {
	p, exists := r.providers[providerID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, providerID)
	}
	copy := *p
	return &copy, nil
}

// XProvider builds the X.com provider configuration.
func XProvider(clientID, clientSecret, redirectURI string) *Provider {
	return &Provider{
		ID:           ProviderX,
		Name:         "X.com",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://twitter.com/i/oauth2/authorize",
		TokenURL:     "https://api.twitter.com/2/oauth2/token",
		ProfileURL:   "https://api.twitter.com/2/users/me",
		RedirectURI:  redirectURI,
		Scopes:       []string{"tweet.read", "users.read"},
	}
}

// StravaProvider builds the Strava provider configuration.
func StravaProvider(clientID, clientSecret, redirectURI string) *Provider {
	return &Provider{
		ID:           ProviderStrava,
		Name:         "Strava",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://www.strava.com/oauth/authorize",
		TokenURL:     "https://www.strava.com/oauth/token",
		ProfileURL:   "https://www.strava.com/api/v3/athlete",
		RedirectURI:  redirectURI,
		Scopes:       []string{"read", "activity:read_all"},
	}
}
