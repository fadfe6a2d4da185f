package records

import (
	"time"

	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/activity"
)

// PersonalRecord is a user's fastest effort over one canonical
// distance. One row per (user, distance); a faster effort replaces it.
type PersonalRecord struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             uuid.UUID         `json:"user_id"`
	SourceActivityID   uuid.UUID         `json:"source_activity_id"`
	Distance           activity.Distance `json:"distance"`
	ElapsedTimeSeconds int32             `json:"elapsed_time_seconds"`
	AchievedOn         time.Time         `json:"achieved_on"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// LeaderboardEntry is one ranked row of the per-distance leaderboard.
type LeaderboardEntry struct {
	Rank               int32     `json:"rank"`
	UserID             uuid.UUID `json:"user_id"`
	XUsername          string    `json:"x_username"`
	XDisplayName       string    `json:"x_display_name"`
	ElapsedTimeSeconds int32     `json:"elapsed_time_seconds"`
	AchievedOn         time.Time `json:"achieved_on"`
}
