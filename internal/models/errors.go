package models

import "errors"

var (
	ErrRideNotFound        = errors.New("ride not found")
	ErrRequestNotFound     = errors.New("ride request not found")
	ErrNotificationMissing = errors.New("notification not found")
	ErrAlertNotFound       = errors.New("emergency alert not found")
	ErrNotAuthorized       = errors.New("not authorized to perform this action")
	ErrInvalidTransition   = errors.New("action not permitted at the current stage")
	ErrStaleState          = errors.New("ride changed while the action was in progress")
	ErrInvalidOTPFormat    = errors.New("otp must be exactly 4 digits")
	ErrOTPMismatch         = errors.New("otp does not match")
	ErrOTPAttemptsExceeded = errors.New("too many otp attempts")
	ErrDuplicateRequest    = errors.New("an active request for this ride already exists")
	ErrValidation          = errors.New("validation failed")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrSuggestionFailed    = errors.New("route suggestion is unavailable right now")
)
