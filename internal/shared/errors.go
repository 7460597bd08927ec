package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Upstream errors
	ErrTransient   = fmt.Errorf("transient upstream failure")
	ErrNotFound    = fmt.Errorf("not found upstream")
	ErrSendFailed  = fmt.Errorf("email delivery failed")
	ErrBreakerOpen = fmt.Errorf("circuit breaker open")

	// Catalog errors
	ErrBlacklisted   = fmt.Errorf("artist is blacklisted")
	ErrUnknownArtist = fmt.Errorf("unknown artist")
	ErrArtistMissing = fmt.Errorf("artist not stored")
	ErrUserNotFound  = fmt.Errorf("user not found")
	ErrInvalidDate   = fmt.Errorf("invalid release date")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
