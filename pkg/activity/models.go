package activity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Distance is a canonical best-effort distance label as Strava reports
// them. Stored as text, so the values are part of the schema.
type Distance string

const (
	Distance400m         Distance = "400m"
	Distance800m         Distance = "800m"
	Distance1K           Distance = "1km"
	Distance1Mile        Distance = "1 Mile"
	Distance5K           Distance = "5km"
	Distance10K          Distance = "10km"
	DistanceHalfMarathon Distance = "Half Marathon"
	DistanceMarathon     Distance = "Marathon"
)

// Distances lists every canonical distance in ascending order.
var Distances = []Distance{
	Distance400m,
	Distance800m,
	Distance1K,
	Distance1Mile,
	Distance5K,
	Distance10K,
	DistanceHalfMarathon,
	DistanceMarathon,
}

// ParseDistance validates a distance label.
func ParseDistance(value string) (Distance, error) {
	for _, d := range Distances {
		if string(d) == value {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown distance: %q", value)
}

// Activity is one imported Strava activity.
type Activity struct {
	ID                  uuid.UUID `json:"id"`
	UserID              uuid.UUID `json:"user_id"`
	StravaActivityID    int64     `json:"strava_activity_id"`
	Name                string    `json:"name"`
	DistanceMeters      float64   `json:"distance_meters"`
	MovingTimeSeconds   int32     `json:"moving_time_seconds"`
	ElevationGainMeters float64   `json:"elevation_gain_meters"`
	StartDate           time.Time `json:"start_date"`
	CreatedAt           time.Time `json:"created_at"`
}

// BestEffort is a per-activity best effort over a canonical distance.
type BestEffort struct {
	ID                 uuid.UUID `json:"id"`
	ActivityID         uuid.UUID `json:"activity_id"`
	UserID             uuid.UUID `json:"user_id"`
	Distance           Distance  `json:"distance"`
	ElapsedTimeSeconds int32     `json:"elapsed_time_seconds"`
}

// ActivityDetail is an activity with its best efforts attached.
type ActivityDetail struct {
	Activity
	BestEfforts []BestEffort `json:"best_efforts"`
}
