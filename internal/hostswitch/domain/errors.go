package domain

import "errors"

// Exported error variables allow callers to use errors.Is() for error checking.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrCannotDeleteActive = errors.New("cannot delete the active profile")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrElevationFailed    = errors.New("elevation failed")
	ErrIOFailure          = errors.New("i/o failure")
	ErrInvalidName        = errors.New("invalid profile name")
)

// Name validation errors. Each wraps ErrInvalidName.
var (
	ErrProfileNameEmpty        = invalidName("profile name cannot be empty")
	ErrProfileNameTooLong      = invalidName("profile name is too long")
	ErrProfileNameInvalidChars = invalidName("use only letters, numbers, hyphens, and underscores")
	ErrProfileNameReserved     = invalidName("profile name is a reserved system filename")
)

type nameError struct {
	msg string
}

func invalidName(msg string) error {
	return &nameError{msg: msg}
}

func (e *nameError) Error() string { return e.msg }

func (e *nameError) Unwrap() error { return ErrInvalidName }
