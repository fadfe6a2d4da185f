package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/provider"
	"github.com/kyle-compute/StravaTPOT/pkg/sessions"
	"github.com/kyle-compute/StravaTPOT/pkg/user"
)

// UserGetter loads user records for the /me endpoint.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Handler exposes the auth flow over HTTP.
type Handler struct {
	service  *Service
	sessions *sessions.Service
	auth     *jwtauth.JWTAuth
	users    UserGetter
}

// NewHandler creates a new auth flow handler.
func NewHandler(service *Service, sessionService *sessions.Service, auth *jwtauth.JWTAuth, userService UserGetter) *Handler {
	return &Handler{
		service:  service,
		sessions: sessionService,
		auth:     auth,
		users:    userService,
	}
}

// RegisterRoutes registers the auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/x/login", h.InitiateXLogin)
		r.Post("/x/callback", h.XCallback)
		r.Post("/strava/callback", h.StravaCallback)

		r.Group(func(r chi.Router) {
			r.Use(sessions.Verifier(h.auth))
			r.Use(h.sessions.Authenticator)
			r.Post("/strava/link", h.InitiateStravaLink)
			r.Post("/logout", h.Logout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions.Verifier(h.auth))
		r.Use(h.sessions.Authenticator)
		r.Get("/me", h.Me)
	})
}

// CallbackRequest is the body posted by the frontend after the provider
// redirects back to it.
type CallbackRequest struct {
	Code             string `json:"code,omitempty"`
	State            string `json:"state"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// LoginResponse is returned by a successful login callback.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
}

// InitiateXLogin starts an X.com login attempt.
func (h *Handler) InitiateXLogin(w http.ResponseWriter, r *http.Request) {
	request, err := h.service.InitiateLogin(r.Context(), provider.ProviderX)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// XCallback finishes an X.com login attempt and issues a session token.
func (h *Handler) XCallback(w http.ResponseWriter, r *http.Request) {
	var body CallbackRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.HandleCallback(r.Context(), provider.ProviderX, body.Code, body.State, body.Error, body.ErrorDescription)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresAt:   result.ExpiresAt,
		UserID:      result.User.ID.String(),
		Handle:      result.User.XUsername,
		DisplayName: result.User.XDisplayName,
	})
}

// InitiateStravaLink starts a Strava link attempt for the authenticated
// user.
func (h *Handler) InitiateStravaLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessions.AuthUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	request, err := h.service.InitiateLink(r.Context(), provider.ProviderStrava, userID)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

// StravaCallback finishes a Strava link attempt. The pending entry
// identifies the user; no new session token is issued.
func (h *Handler) StravaCallback(w http.ResponseWriter, r *http.Request) {
	var body CallbackRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.HandleCallback(r.Context(), provider.ProviderStrava, body.Code, body.State, body.Error, body.ErrorDescription)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result.User)
}

// MeResponse is the authenticated user's record plus derived link state.
type MeResponse struct {
	*user.User
	StravaConnected bool `json:"strava_connected"`
}

// Me returns the authenticated user's record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessions.AuthUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to load user", "user_id", userID, "error", err)
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: u, StravaConnected: u.StravaConnected()})
}

// Logout revokes the session behind the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenStr := sessions.TokenFromRequest(r)
	if err := h.sessions.Revoke(r.Context(), tokenStr); err != nil {
		slog.Error("failed to revoke session", "error", err)
		http.Error(w, "Failed to revoke session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFlowError maps the flow error taxonomy onto HTTP status codes.
// Configuration faults are the server's problem; everything else in the
// taxonomy tells the client to restart the login.
func writeFlowError(w http.ResponseWriter, err error) {
	var denied ProviderDeniedError
	var exchange TokenExchangeError
	var fetch ProfileFetchError
	var alreadyLinked user.ErrStravaAlreadyLinked

	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		slog.Error("provider not configured", "error", err)
		http.Error(w, "Provider not configured", http.StatusInternalServerError)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, "Invalid or expired state", http.StatusBadRequest)
	case errors.Is(err, ErrMissingCode):
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
	case errors.Is(err, ErrLinkRequiresUser):
		http.Error(w, "Login is not supported for this provider", http.StatusBadRequest)
	case errors.As(err, &denied):
		http.Error(w, denied.Error(), http.StatusBadRequest)
	case errors.As(err, &exchange):
		http.Error(w, "Token exchange failed", http.StatusBadRequest)
	case errors.As(err, &fetch):
		http.Error(w, "Profile fetch failed", http.StatusBadRequest)
	case errors.As(err, &alreadyLinked):
		http.Error(w, alreadyLinked.Error(), http.StatusConflict)
	default:
		slog.Error("auth flow failed", "error", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
	}
}
