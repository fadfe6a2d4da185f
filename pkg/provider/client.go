package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenResponse is the provider's token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RemoteProfile is the normalized view of a provider's profile endpoint
// response. RemoteID is the provider-side user id as a string, regardless
// of the provider's own numeric or string typing.
type RemoteProfile struct {
	ProviderID  string
	RemoteID    string
	Handle      string
	DisplayName string
	AvatarURL   string
}

// HTTPError carries the upstream status of a failed provider call so the
// auth flow can classify it.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider request failed with status %d: %s", e.Status, e.Body)
}

// Client performs the outbound calls of the authorization-code exchange.
// Both calls carry an explicit timeout; a hung upstream must not block
// the callback handler indefinitely.
type Client struct {
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a provider client with a 15 second default timeout.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ExchangeCode exchanges an authorization code plus the stored PKCE
// verifier for tokens at the provider's token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, p *Provider, code, codeVerifier string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", p.ClientID)
	data.Set("client_secret", p.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", p.RedirectURI)
	data.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	slog.Info("Token exchange successful", "provider", p.ID, "token_type", tokenResponse.TokenType)
	return &tokenResponse, nil
}

// FetchProfile retrieves the remote profile with a freshly issued access
// token and normalizes it per provider.
func (c *Client) FetchProfile(ctx context.Context, p *Provider, accessToken string) (*RemoteProfile, error) {
	profileURL := p.ProfileURL
	if p.ID == ProviderX {
		// X returns only the id unless the wanted fields are asked for.
		profileURL += "?user.fields=" + url.QueryEscape("id,username,name,profile_image_url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	profile, err := parseProfile(p.ID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	slog.Info("Profile fetched", "provider", p.ID, "remote_id", profile.RemoteID, "handle", profile.Handle)
	return profile, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func parseProfile(providerID string, body []byte) (*RemoteProfile, error) {
	profile := &RemoteProfile{ProviderID: providerID}

	switch providerID {
	case ProviderX:
		var payload struct {
			Data struct {
				ID              string `json:"id"`
				Username        string `json:"username"`
				Name            string `json:"name"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		profile.RemoteID = payload.Data.ID
		profile.Handle = payload.Data.Username
		profile.DisplayName = payload.Data.Name
		profile.AvatarURL = payload.Data.ProfileImageURL

	case ProviderStrava:
		var payload struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			Firstname string `json:"firstname"`
			Lastname  string `json:"lastname"`
			Profile   string `json:"profile"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		if payload.ID != 0 {
			profile.RemoteID = fmt.Sprintf("%d", payload.ID)
		}
		profile.Handle = payload.Username
		profile.DisplayName = strings.TrimSpace(payload.Firstname + " " + payload.Lastname)
		profile.AvatarURL = payload.Profile

	default:
		return nil, fmt.Errorf("unknown provider: %s", providerID)
	}

	if profile.RemoteID == "" {
		return nil, fmt.Errorf("no remote user id in profile response")
	}
	return profile, nil
}
