package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideState string

const (
	RideStatePending   RideState = "pending"
	RideStateOngoing   RideState = "ongoing"
	RideStateCompleted RideState = "completed"
	RideStateCancelled RideState = "cancelled"
)

// Ride is the unit of transactional consistency. Passengers and the SOS
// sub-record are only ever mutated inside a store transaction that has
// re-read the document first.
type Ride struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	DriverID       primitive.ObjectID   `json:"driver_id" bson:"driver_id" validate:"required"`
	CarID          primitive.ObjectID   `json:"car_id" bson:"car_id" validate:"required"`
	Passengers     []primitive.ObjectID `json:"passengers" bson:"passengers"`
	AvailableSeats int                  `json:"available_seats" bson:"available_seats" validate:"required,min=1"`
	ToCampus       bool                 `json:"to_campus" bson:"to_campus"`
	Location       Place                `json:"location" bson:"location" validate:"required"`
	DepartureTime  time.Time            `json:"departure_time" bson:"departure_time" validate:"required"`
	Fare           float64              `json:"fare" bson:"fare" validate:"min=0"`
	SOS            *SOSRecord           `json:"sos" bson:"sos"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	StartedAt      *time.Time           `json:"started_at" bson:"started_at"`
	CompletedAt    *time.Time           `json:"completed_at" bson:"completed_at"`
	CancelledAt    *time.Time           `json:"cancelled_at" bson:"cancelled_at"`
	DeletedAt      *time.Time           `json:"deleted_at" bson:"deleted_at"`
}

// SOSRecord is the orthogonal emergency sub-machine attached to an ongoing
// ride. RespondedBy is written at most once (first responder wins); StartedAt
// may only be set after RespondedBy.
type SOSRecord struct {
	TriggeredAt time.Time           `json:"triggered_at" bson:"triggered_at"`
	TriggeredBy primitive.ObjectID  `json:"triggered_by" bson:"triggered_by"`
	RespondedBy *primitive.ObjectID `json:"responded_by" bson:"responded_by"`
	CarID       *primitive.ObjectID `json:"car_id" bson:"car_id"`
	StartedAt   *time.Time          `json:"started_at" bson:"started_at"`
}

func (r *Ride) State() RideState {
	switch {
	case r.CancelledAt != nil:
		return RideStateCancelled
	case r.CompletedAt != nil:
		return RideStateCompleted
	case r.StartedAt != nil:
		return RideStateOngoing
	default:
		return RideStatePending
	}
}

func (r *Ride) IsTerminal() bool {
	return r.CompletedAt != nil || r.CancelledAt != nil
}

func (r *Ride) HasPassenger(userID primitive.ObjectID) bool {
	for _, p := range r.Passengers {
		if p == userID {
			return true
		}
	}
	return false
}

// RemovePassenger drops userID from the passenger list, preserving order.
// Returns false when the user held no seat.
func (r *Ride) RemovePassenger(userID primitive.ObjectID) bool {
	for i, p := range r.Passengers {
		if p == userID {
			r.Passengers = append(r.Passengers[:i], r.Passengers[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Ride) SeatsRemaining() int {
	return r.AvailableSeats - len(r.Passengers)
}

// Involves reports whether the user participates in the ride as its driver,
// a passenger, or the claimed SOS responder.
func (r *Ride) Involves(userID primitive.ObjectID) bool {
	if r.DriverID == userID || r.HasPassenger(userID) {
		return true
	}
	return r.SOS != nil && r.SOS.RespondedBy != nil && *r.SOS.RespondedBy == userID
}

// SOSResponder returns the claimed responder id, or the zero ObjectID when
// no claim has been committed.
func (r *Ride) SOSResponder() primitive.ObjectID {
	if r.SOS == nil || r.SOS.RespondedBy == nil {
		return primitive.NilObjectID
	}
	return *r.SOS.RespondedBy
}
