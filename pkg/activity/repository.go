package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrActivityNotFound is returned when no activity matches the lookup.
var ErrActivityNotFound = errors.New("activity not found")

// UpsertParams is one activity as the import worker delivers it,
// including its best efforts.
type UpsertParams struct {
	UserID              uuid.UUID
	StravaActivityID    int64
	Name                string
	DistanceMeters      float64
	MovingTimeSeconds   int32
	ElevationGainMeters float64
	StartDate           time.Time
	BestEfforts         []BestEffortParams
}

// BestEffortParams is one best effort within an upserted activity.
type BestEffortParams struct {
	Distance           Distance
	ElapsedTimeSeconds int32
}

// ListParams paginates an activity listing.
type ListParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

// Repository is the durable store for activities and best efforts.
type Repository interface {
	// Upsert writes an activity keyed on (user_id, strava_activity_id),
	// replacing its best efforts, in one transaction. Re-imports are
	// idempotent.
	Upsert(ctx context.Context, params UpsertParams) (*Activity, error)

	// GetDetail returns an activity with its best efforts.
	GetDetail(ctx context.Context, id uuid.UUID) (*ActivityDetail, error)

	// ListByUser returns a page of a user's activities, newest first,
	// and the total count.
	ListByUser(ctx context.Context, params ListParams) ([]Activity, int64, error)
}
