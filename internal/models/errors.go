package models

import "errors"

// Named precondition errors surfaced by every mutating operation. A failed
// precondition is re-checked against a fresh read inside the transaction, so
// a caller racing another writer always loses with one of these rather than
// observing partial state.
var (
	ErrRideNotFound    = errors.New("ride not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCarNotFound     = errors.New("car not found")
	ErrMessageNotFound = errors.New("message not found")

	ErrRideFull            = errors.New("ride is full")
	ErrInvalidSeats        = errors.New("seat count exceeds vehicle capacity")
	ErrDepartureInPast     = errors.New("departure time must be in the future")
	ErrRideNotBookable     = errors.New("ride is not bookable")
	ErrNotBooked           = errors.New("user is not a passenger of this ride")
	ErrEmptyMessage        = errors.New("message body is empty")
	ErrAlreadyInActiveRide = errors.New("user is already in an active ride")

	ErrNotAuthorized       = errors.New("caller is not authorized for this transition")
	ErrRideNotPending      = errors.New("ride has already started or ended")
	ErrRideNotOngoing      = errors.New("ride is not ongoing")
	ErrRideEnded           = errors.New("ride has ended")
	ErrTooCloseToDeparture = errors.New("too close to departure to cancel")

	// ErrConflict is a lost optimistic race the caller may retry after a
	// fresh read; it surfaces only when the store's own retries ran out.
	ErrConflict = errors.New("concurrent modification detected")

	ErrSOSAlreadyActive  = errors.New("an SOS is already active on this ride")
	ErrSOSNotActive      = errors.New("no SOS is active on this ride")
	ErrSOSActive         = errors.New("ride has an active SOS")
	ErrAlreadyResponded  = errors.New("SOS has already been claimed by another responder")
	ErrSOSNotStarted     = errors.New("SOS ride has not been started by the responder")
	ErrSOSAlreadyStarted = errors.New("SOS ride has already been started")

	ErrNoSignal = errors.New("no location signal reported yet")
)
