package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/activity"
)

// UpsertParams is one candidate personal record.
type UpsertParams struct {
	UserID             uuid.UUID
	SourceActivityID   uuid.UUID
	Distance           activity.Distance
	ElapsedTimeSeconds int32
	AchievedOn         time.Time
}

// Repository is the durable store for personal records.
type Repository interface {
	// Upsert keeps only the fastest time per (user, distance): a slower
	// candidate leaves the stored record untouched.
	Upsert(ctx context.Context, params UpsertParams) error

	// ListByUser returns a user's records in canonical distance order.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]PersonalRecord, error)

	// Leaderboard returns the fastest users over a distance, ranked.
	Leaderboard(ctx context.Context, distance activity.Distance, limit int32) ([]LeaderboardEntry, error)
}
