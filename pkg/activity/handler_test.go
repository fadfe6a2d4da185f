package activity

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	router := chi.NewRouter()
	NewHandler(NewService(repo, nil)).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, repo
}

func TestImportActivityEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	userID := uuid.New()

	body, err := json.Marshal(map[string]interface{}{
		"strava_activity_id":    987654321,
		"name":                  "Morning Run",
		"distance_meters":       10012.5,
		"moving_time_seconds":   2888,
		"elevation_gain_meters": 52.0,
		"start_date":            time.Date(2026, 8, 20, 6, 30, 0, 0, time.UTC),
		"best_efforts": []map[string]interface{}{
			{"distance": "5km", "elapsed_time_seconds": 1380},
		},
	})
	require.NoError(t, err)

	response, err := http.Post(server.URL+"/users/"+userID.String()+"/activities", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusCreated, response.StatusCode)

	var created Activity
	require.NoError(t, json.NewDecoder(response.Body).Decode(&created))
	assert.Equal(t, int64(987654321), created.StravaActivityID)
	assert.Equal(t, userID, created.UserID)

	listResponse, err := http.Get(server.URL + "/users/" + userID.String() + "/activities")
	require.NoError(t, err)
	defer listResponse.Body.Close()
	require.Equal(t, http.StatusOK, listResponse.StatusCode)

	var list struct {
		Activities []Activity `json:"activities"`
		Total      int64      `json:"total"`
	}
	require.NoError(t, json.NewDecoder(listResponse.Body).Decode(&list))
	assert.Equal(t, int64(1), list.Total)
}

func TestImportActivityRejectsBadDistance(t *testing.T) {
	server, _ := newTestServer(t)

	body, err := json.Marshal(map[string]interface{}{
		"strava_activity_id": 1,
		"name":               "Run",
		"start_date":         time.Now().UTC(),
		"best_efforts": []map[string]interface{}{
			{"distance": "2km", "elapsed_time_seconds": 600},
		},
	})
	require.NoError(t, err)

	response, err := http.Post(server.URL+"/users/"+uuid.NewString()+"/activities", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestGetActivityNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	response, err := http.Get(server.URL + "/activities/" + uuid.NewString())
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}
