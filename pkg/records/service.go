package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kyle-compute/StravaTPOT/pkg/activity"
)

// DefaultLeaderboardLimit caps how many ranked entries a leaderboard
// query returns by default.
const DefaultLeaderboardLimit = 50

// Service maintains personal records and answers leaderboard queries.
// It implements activity.RecordKeeper so imports feed it directly.
type Service struct {
	repository Repository
}

// NewService creates a records service.
func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

// ObserveBestEffort folds a stored best effort into the user's personal
// records. Slower efforts than the current record are no-ops.
func (s *Service) ObserveBestEffort(ctx context.Context, userID, activityID uuid.UUID, distance activity.Distance, elapsedTimeSeconds int32, achievedOn time.Time) error {
	return s.repository.Upsert(ctx, UpsertParams{
		UserID:             userID,
		SourceActivityID:   activityID,
		Distance:           distance,
		ElapsedTimeSeconds: elapsedTimeSeconds,
		AchievedOn:         achievedOn,
	})
}

// ListByUser returns a user's records in canonical distance order.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]PersonalRecord, error) {
	return s.repository.ListByUser(ctx, userID)
}

// Leaderboard returns the ranked fastest users over a distance.
func (s *Service) Leaderboard(ctx context.Context, distance activity.Distance, limit int32) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultLeaderboardLimit
	}
	return s.repository.Leaderboard(ctx, distance, limit)
}
