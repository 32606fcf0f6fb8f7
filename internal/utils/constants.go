package utils

import "math"

const (
	AppName = "RidePair"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1
	MaxPage         = math.MaxInt / MaxPageSize

	// Ride code
	RideOTPMin = 1000
	RideOTPMax = 9999

	MaxMessageLength = 1000

	// Personal contacts texted per emergency alert, hotlines excluded.
	MaxEmergencyContacts = 5
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes returned in the response envelope.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeNotAuthorized         = "NOT_AUTHORIZED"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeStaleState            = "STALE_STATE"
	CodeDuplicateRequest      = "DUPLICATE_REQUEST"
	CodeValidation            = "VALIDATION_ERROR"
	CodeOTPMismatch           = "OTP_MISMATCH"
	CodeOTPAttemptsExceeded   = "OTP_ATTEMPTS_EXCEEDED"
	CodeSuggestionUnavailable = "SUGGESTION_UNAVAILABLE"
	CodeStoreUnavailable      = "STORE_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrInvalidToken     = "invalid token"
	ErrValidationFailed = "validation failed"
)

// Cache keys
const (
	CacheOTPAttemptsPrefix = "otp_attempts:"
	CacheDeviceTokenPrefix = "push_tokens:"
	CacheRideChannelPrefix = "ride_events:"
)
