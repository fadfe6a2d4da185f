package user

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when no user matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

// ErrAuthorizationNotFound is returned when a (user, provider) pair has
// no stored authorization.
var ErrAuthorizationNotFound = errors.New("provider authorization not found")

// ErrStravaAlreadyLinked is returned when a Strava athlete id is already
// bound to a different user.
type ErrStravaAlreadyLinked struct {
	AthleteID int64
}

func (e ErrStravaAlreadyLinked) Error() string {
	return fmt.Sprintf("strava athlete %d is already linked to another user", e.AthleteID)
}
