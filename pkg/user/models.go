package user

import (
	"time"

	"github.com/google/uuid"
)

// BackfillStatus tracks the progress of a user's historical Strava
// activity import. The auth flow only ever sets PENDING (on signup) and
// QUEUED (on Strava connect); the import worker owns the rest of the
// transitions.
type BackfillStatus string

const (
	BackfillPending    BackfillStatus = "PENDING"
	BackfillQueued     BackfillStatus = "QUEUED"
	BackfillInProgress BackfillStatus = "IN_PROGRESS"
	BackfillCompleted  BackfillStatus = "COMPLETED"
	BackfillFailed     BackfillStatus = "FAILED"
)

// User is the central identity record. Identity is anchored on the X.com
// user id; a user can exist before ever connecting a Strava account.
type User struct {
	ID           uuid.UUID `json:"id"`
	XUserID      string    `json:"x_user_id"`
	XUsername    string    `json:"x_username"`
	XDisplayName string    `json:"x_display_name,omitempty"`

	// Optional fields, each unique when present.
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	// Nullable until the user connects Strava; unique so one Strava
	// account can only back one user.
	StravaAthleteID *int64 `json:"strava_athlete_id,omitempty"`

	ProfilePictureURL string         `json:"profile_picture_url,omitempty"`
	BackfillStatus    BackfillStatus `json:"backfill_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// StravaConnected reports whether the user has linked a Strava account.
func (u *User) StravaConnected() bool {
	return u.StravaAthleteID != nil
}

// ProviderAuthorization stores the OAuth tokens for one (user, provider)
// link. Token columns hold AES-256-GCM ciphertext, never plaintext.
type ProviderAuthorization struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"-"`
	RefreshToken *string    `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AuthTokens is the decrypted token material handed between the auth flow
// and this package.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       string
}
