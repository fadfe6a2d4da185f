package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RecordKeeper is notified of each stored best effort so personal
// records stay current as activities are imported.
type RecordKeeper interface {
	ObserveBestEffort(ctx context.Context, userID, activityID uuid.UUID, distance Distance, elapsedTimeSeconds int32, achievedOn time.Time) error
}

// Service validates and stores imported activities.
type Service struct {
	repository Repository
	records    RecordKeeper
}

// NewService creates an activity service. records may be nil when no
// personal-record tracking is wired.
func NewService(repository Repository, records RecordKeeper) *Service {
	return &Service{
		repository: repository,
		records:    records,
	}
}

// Import upserts one activity with its best efforts and feeds them to
// the record keeper. Re-importing the same Strava activity is
// idempotent.
func (s *Service) Import(ctx context.Context, params UpsertParams) (*Activity, error) {
	for _, effort := range params.BestEfforts {
		if _, err := ParseDistance(string(effort.Distance)); err != nil {
			return nil, err
		}
		if effort.ElapsedTimeSeconds <= 0 {
			return nil, fmt.Errorf("invalid elapsed time for %s: %d", effort.Distance, effort.ElapsedTimeSeconds)
		}
	}

	a, err := s.repository.Upsert(ctx, params)
	if err != nil {
		return nil, err
	}

	if s.records != nil {
		achievedOn := a.StartDate
		for _, effort := range params.BestEfforts {
			err := s.records.ObserveBestEffort(ctx, a.UserID, a.ID, effort.Distance, effort.ElapsedTimeSeconds, achievedOn)
			if err != nil {
				return nil, fmt.Errorf("failed to update personal record for %s: %w", effort.Distance, err)
			}
		}
	}

	slog.Debug("imported activity", "user_id", a.UserID, "strava_activity_id", a.StravaActivityID, "best_efforts", len(params.BestEfforts))
	return a, nil
}

// Get returns an activity with its best efforts.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ActivityDetail, error) {
	return s.repository.GetDetail(ctx, id)
}

// ListByUser returns a page of a user's activities and the total count.
func (s *Service) ListByUser(ctx context.Context, params ListParams) ([]Activity, int64, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.repository.ListByUser(ctx, params)
}
