package records

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/activity"
)

// Handler handles HTTP requests for personal records and leaderboards.
type Handler struct {
	service *Service
}

// NewHandler creates a new records handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the records routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{id}/records", h.ListUserRecords)
	r.Get("/leaderboard", h.Leaderboard)
}

// ListUserRecords handles the request to list a user's personal
// records.
func (h *Handler) ListUserRecords(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	records, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list records: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := struct {
		Records []PersonalRecord `json:"records"`
	}{Records: records}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Leaderboard handles the per-distance leaderboard query.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	distance, err := activity.ParseDistance(r.URL.Query().Get("distance"))
	if err != nil {
		http.Error(w, "Invalid or missing distance", http.StatusBadRequest)
		return
	}

	limit := int32(0)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limitInt, err := strconv.Atoi(limitStr); err == nil {
			limit = int32(limitInt)
		}
	}

	entries, err := h.service.Leaderboard(r.Context(), distance, limit)
	if err != nil {
		http.Error(w, "Failed to load leaderboard: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := struct {
		Distance activity.Distance  `json:"distance"`
		Entries  []LeaderboardEntry `json:"entries"`
	}{Distance: distance, Entries: entries}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
