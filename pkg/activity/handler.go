package activity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Handler handles HTTP requests for activities.
type Handler struct {
	service *Service
}

// NewHandler creates a new activity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the activity routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{id}/activities", h.ListUserActivities)
	r.Post("/users/{id}/activities", h.ImportActivity)
	r.Get("/activities/{id}", h.GetActivity)
}

// ImportActivityRequest is one activity as the backfill worker posts
// it.
type ImportActivityRequest struct {
	StravaActivityID    int64     `json:"strava_activity_id"`
	Name                string    `json:"name"`
	DistanceMeters      float64   `json:"distance_meters"`
	MovingTimeSeconds   int32     `json:"moving_time_seconds"`
	ElevationGainMeters float64   `json:"elevation_gain_meters"`
	StartDate           time.Time `json:"start_date"`
	BestEfforts         []struct {
		Distance           Distance `json:"distance"`
		ElapsedTimeSeconds int32    `json:"elapsed_time_seconds"`
	} `json:"best_efforts"`
}

// ImportActivity handles the backfill worker's activity upsert.
func (h *Handler) ImportActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	data := ImportActivityRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		http.Error(w, "unable to parse body", http.StatusBadRequest)
		return
	}

	params := UpsertParams{}
	copier.Copy(&params, data)
	params.UserID = userID

	a, err := h.service.Import(r.Context(), params)
	if err != nil {
		slog.Error("Failed importing activity", "user_id", userID, "err", err)
		http.Error(w, "Failed importing activity: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

// ListUserActivities handles the request to list a user's activities.
func (h *Handler) ListUserActivities(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	params := ListParams{UserID: userID, Limit: 20}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			params.Limit = int32(limit)
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			params.Offset = int32(offset)
		}
	}

	activities, total, err := h.service.ListByUser(r.Context(), params)
	if err != nil {
		http.Error(w, "Failed to list activities: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := struct {
		Activities []Activity `json:"activities"`
		Total      int64      `json:"total"`
	}{
		Activities: activities,
		Total:      total,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetActivity handles the request to get one activity with its best
// efforts.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid activity ID", http.StatusBadRequest)
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "Activity not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load activity", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}
