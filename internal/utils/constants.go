package utils

import "time"

// Application Constants
const (
	AppName    = "CampusRide"
	AppVersion = "1.0.0"

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Generic error messages
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized"
	ErrForbidden        = "Forbidden"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Ride Constants
	CancelWindow       = 30 * time.Minute // driver cancellation guard before departure
	MaxSeats           = 8
	MaxPublishAhead    = 14 * 24 * time.Hour
	SignalListLimit    = 200
	MessageListLimit   = 200
	ActiveRideCacheTTL = 30 * time.Second
	RideCacheTTL       = 15 * time.Minute
)
