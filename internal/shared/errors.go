package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization flow errors
	ErrAuthFailed         = fmt.Errorf("authorization failed")
	ErrMissingTransaction = fmt.Errorf("transaction expired or was never started")
	ErrStateMismatch      = fmt.Errorf("state does not match pending transaction")
	ErrTokenExchange      = fmt.Errorf("token exchange failed")
	ErrRefreshFailed      = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token available")

	// API and catalog errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrUnknownArtist  = fmt.Errorf("unknown correlation value")
	ErrPlaylistCreate = fmt.Errorf("failed to create playlist")
	ErrTrackNotFound  = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
