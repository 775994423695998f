package apperrors

import "errors"

var (
	ErrNoEntityColumns  = errors.New("no entity columns discovered")
	ErrValidationFailed = errors.New("onboarding validation failed")
	ErrIndexNotReady    = errors.New("no resolution index is active")
)
