package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrInvalidSignature = fmt.Errorf("invalid webhook signature")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Catalog errors
	ErrNotFound           = fmt.Errorf("not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrTrackNotFound      = fmt.Errorf("track %w", ErrNotFound)
	ErrPlaylistNotFound   = fmt.Errorf("playlist %w", ErrNotFound)
	ErrAlreadyExists      = fmt.Errorf("already exists")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrUnsupportedFile = fmt.Errorf("unsupported file type")
	ErrFileTooLarge    = fmt.Errorf("file too large")
)
