package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Signal is an append-only location ping reported by the active driver (or
// the SOS responder) while a ride is ongoing. Signals are never updated or
// deleted; "last known location" is the most recent signal by timestamp.
type Signal struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID    primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Latitude  float64            `json:"latitude" bson:"latitude" validate:"min=-90,max=90"`
	Longitude float64            `json:"longitude" bson:"longitude" validate:"min=-180,max=180"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}
