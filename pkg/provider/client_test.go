package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider(tokenURL, profileURL string) *Provider {
	p := XProvider("client-id", "client-secret", "https://example.com/callback")
	p.TokenURL = tokenURL
	p.ProfileURL = profileURL
	return p
}

func TestExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "https://example.com/callback", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-123","token_type":"bearer","expires_in":7200,"refresh_token":"rt-456","scope":"tweet.read users.read"}`))
	}))
	defer server.Close()

	client := NewClient()
	tokens, err := client.ExchangeCode(context.Background(), testProvider(server.URL, server.URL), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "at-123", tokens.AccessToken)
	assert.Equal(t, "rt-456", tokens.RefreshToken)
	assert.Equal(t, 7200, tokens.ExpiresIn)
}

func TestExchangeCodeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.ExchangeCode(context.Background(), testProvider(server.URL, server.URL), "bad-code", "verifier")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
}

func TestExchangeCodeMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.ExchangeCode(context.Background(), testProvider(server.URL, server.URL), "code", "verifier")
	assert.Error(t, err)
}

func TestFetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.RawQuery, "user.fields")

		w.Write([]byte(`{"data":{"id":"42","username":"sprinter","name":"Fast One"}}`))
	}))
	defer server.Close()

	client := NewClient()
	profile, err := client.FetchProfile(context.Background(), testProvider(server.URL, server.URL), "at-123")
	require.NoError(t, err)
	assert.Equal(t, "42", profile.RemoteID)
	assert.Equal(t, "sprinter", profile.Handle)
}

func TestFetchProfileUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.FetchProfile(context.Background(), testProvider(server.URL, server.URL), "expired-token")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
}
