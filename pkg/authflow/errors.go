package authflow

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when the callback state is unknown, already
// consumed, or past its TTL.
var ErrInvalidState = errors.New("invalid or expired state")

// ErrMissingCode is returned when the callback carries neither an
// authorization code nor a provider error.
var ErrMissingCode = errors.New("missing authorization code")

// ErrLinkRequiresUser is returned when a link callback arrives for a
// pending entry that was never bound to an authenticated user.
var ErrLinkRequiresUser = errors.New("link flow requires an authenticated user")

// ProviderDeniedError is returned when the provider redirected back with
// an error instead of an authorization code.
type ProviderDeniedError struct {
	Code        string
	Description string
}

func (e ProviderDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider denied authorization: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("provider denied authorization: %s", e.Code)
}

// TokenExchangeError is returned when the code-for-token exchange fails.
// The consumed code and state cannot be retried; the client must restart
// the login from the initiator.
type TokenExchangeError struct {
	Err error
}

func (e TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e TokenExchangeError) Unwrap() error {
	return e.Err
}

// ProfileFetchError is returned when the profile fetch fails after a
// successful token exchange. The exchanged token is discarded.
type ProfileFetchError struct {
	Err error
}

func (e ProfileFetchError) Error() string {
	return fmt.Sprintf("profile fetch failed: %v", e.Err)
}

func (e ProfileFetchError) Unwrap() error {
	return e.Err
}
