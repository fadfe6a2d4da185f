package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyle-compute/StravaTPOT/pkg/provider"
	"github.com/kyle-compute/StravaTPOT/pkg/sessions"
	"github.com/kyle-compute/StravaTPOT/pkg/tokengenerator"
	"github.com/kyle-compute/StravaTPOT/pkg/user"
)

type fakeUserGetter struct {
	users map[uuid.UUID]*user.User
}

func (g *fakeUserGetter) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, exists := g.users[id]
	if !exists {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *testHarness, *sessions.Service, *fakeUserGetter) {
	t.Helper()

	harness := newHarness(t)
	sessionService := sessions.NewService(
		sessions.NewInMemoryRepository(),
		tokengenerator.NewJwtTokenGenerator("test-secret", "stravatpot", "stravatpot"),
	)
	getter := &fakeUserGetter{users: make(map[uuid.UUID]*user.User)}

	// The HTTP layer issues real session tokens; the flow harness keeps
	// its fake issuer for service-level assertions.
	harness.service.issuer = sessionService

	router := chi.NewRouter()
	NewHandler(harness.service, sessionService, sessions.NewAuth("test-secret"), getter).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, harness, sessionService, getter
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	response, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func TestLoginEndToEnd(t *testing.T) {
	server, _, _, getter := newTestServer(t)

	response := postJSON(t, server.URL+"/auth/x/login", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)

	var initiated AuthorizationRequest
	require.NoError(t, json.NewDecoder(response.Body).Decode(&initiated))
	assert.NotEmpty(t, initiated.AuthURL)
	assert.NotEmpty(t, initiated.State)

	response = postJSON(t, server.URL+"/auth/x/callback", CallbackRequest{
		Code:  "auth-code",
		State: initiated.State,
	})
	require.Equal(t, http.StatusOK, response.StatusCode)

	var login LoginResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&login))
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, "runner", login.Handle)

	// The issued token works against the authenticated surface.
	userID := uuid.MustParse(login.UserID)
	getter.users[userID] = &user.User{ID: userID, XUsername: "runner"}

	request, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
	require.NoError(t, err)
	request.Header.Set("Authorization", "Bearer "+login.AccessToken)
	meResponse, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer meResponse.Body.Close()
	assert.Equal(t, http.StatusOK, meResponse.StatusCode)
}

func TestMeReportsStravaLink(t *testing.T) {
	server, _, sessionService, getter := newTestServer(t)

	fetchMe := func(t *testing.T, u *user.User) map[string]interface{} {
		t.Helper()
		getter.users[u.ID] = u
		token, err := sessionService.Create(context.Background(), u)
		require.NoError(t, err)

		request, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
		require.NoError(t, err)
		request.Header.Set("Authorization", "Bearer "+token.Token)
		response, err := http.DefaultClient.Do(request)
		require.NoError(t, err)
		defer response.Body.Close()
		require.Equal(t, http.StatusOK, response.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
		return body
	}

	t.Run("not linked", func(t *testing.T) {
		body := fetchMe(t, &user.User{ID: uuid.New(), XUsername: "runner"})
		assert.Equal(t, false, body["strava_connected"])
	})

	t.Run("linked", func(t *testing.T) {
		athleteID := int64(12345)
		body := fetchMe(t, &user.User{ID: uuid.New(), XUsername: "cyclist", StravaAthleteID: &athleteID})
		assert.Equal(t, true, body["strava_connected"])
	})
}

func TestCallbackStatusCodes(t *testing.T) {
	server, harness, _, _ := newTestServer(t)

	t.Run("unknown state", func(t *testing.T) {
		response := postJSON(t, server.URL+"/auth/x/callback", CallbackRequest{Code: "c", State: "bogus"})
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("provider denied", func(t *testing.T) {
		initiated, err := harness.service.InitiateLogin(context.Background(), provider.ProviderX)
		require.NoError(t, err)
		response := postJSON(t, server.URL+"/auth/x/callback", CallbackRequest{
			State: initiated.State,
			Error: "access_denied",
		})
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("missing code", func(t *testing.T) {
		initiated, err := harness.service.InitiateLogin(context.Background(), provider.ProviderX)
		require.NoError(t, err)
		response := postJSON(t, server.URL+"/auth/x/callback", CallbackRequest{State: initiated.State})
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("exchange failure", func(t *testing.T) {
		harness.client.exchangeErr = &provider.HTTPError{Status: 401, Body: "invalid_client"}
		t.Cleanup(func() { harness.client.exchangeErr = nil })
		initiated, err := harness.service.InitiateLogin(context.Background(), provider.ProviderX)
		require.NoError(t, err)
		response := postJSON(t, server.URL+"/auth/x/callback", CallbackRequest{Code: "c", State: initiated.State})
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})
}

func TestUnconfiguredProviderIsServerFault(t *testing.T) {
	harness := newHarness(t)
	registry, err := provider.NewRegistry()
	require.NoError(t, err)
	harness.service.registry = registry

	sessionService := sessions.NewService(
		sessions.NewInMemoryRepository(),
		tokengenerator.NewJwtTokenGenerator("test-secret", "stravatpot", "stravatpot"),
	)
	router := chi.NewRouter()
	NewHandler(harness.service, sessionService, sessions.NewAuth("test-secret"), &fakeUserGetter{users: map[uuid.UUID]*user.User{}}).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	response := postJSON(t, server.URL+"/auth/x/login", nil)
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
}

func TestStravaLinkRequiresAuth(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	response := postJSON(t, server.URL+"/auth/strava/link", nil)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
}

func TestStravaLinkFlow(t *testing.T) {
	server, harness, sessionService, getter := newTestServer(t)

	u := &user.User{ID: uuid.New(), XUserID: "44196397", XUsername: "runner"}
	getter.users[u.ID] = u
	token, err := sessionService.Create(context.Background(), u)
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodPost, server.URL+"/auth/strava/link", nil)
	require.NoError(t, err)
	request.Header.Set("Authorization", "Bearer "+token.Token)
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)

	var initiated AuthorizationRequest
	require.NoError(t, json.NewDecoder(response.Body).Decode(&initiated))

	callbackResponse := postJSON(t, server.URL+"/auth/strava/callback", CallbackRequest{
		Code:  "auth-code",
		State: initiated.State,
	})
	assert.Equal(t, http.StatusOK, callbackResponse.StatusCode)
	assert.True(t, harness.reconcile.linkCalled)
	assert.Equal(t, u.ID, harness.reconcile.linkUserID)
}

func TestLogoutRevokesSession(t *testing.T) {
	server, _, sessionService, getter := newTestServer(t)

	u := &user.User{ID: uuid.New(), XUsername: "runner"}
	getter.users[u.ID] = u
	token, err := sessionService.Create(context.Background(), u)
	require.NoError(t, err)

	logout, err := http.NewRequest(http.MethodPost, server.URL+"/auth/logout", nil)
	require.NoError(t, err)
	logout.Header.Set("Authorization", "Bearer "+token.Token)
	response, err := http.DefaultClient.Do(logout)
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusNoContent, response.StatusCode)

	me, err := http.NewRequest(http.MethodGet, server.URL+"/me", nil)
	require.NoError(t, err)
	me.Header.Set("Authorization", "Bearer "+token.Token)
	meResponse, err := http.DefaultClient.Do(me)
	require.NoError(t, err)
	defer meResponse.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, meResponse.StatusCode)
}
