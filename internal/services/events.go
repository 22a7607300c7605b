package services

import (
	"context"
	"time"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideEventType string

const (
	RideEventCreated      RideEventType = "ride_created"
	RideEventBooked       RideEventType = "passenger_joined"
	RideEventBookingLeft  RideEventType = "passenger_left"
	RideEventStarted      RideEventType = "ride_started"
	RideEventCancelled    RideEventType = "ride_cancelled"
	RideEventCompleted    RideEventType = "ride_completed"
	RideEventSOSTriggered RideEventType = "sos_triggered"
	RideEventSOSResponded RideEventType = "sos_responded"
	RideEventSOSStarted   RideEventType = "sos_started"
	RideEventSignal       RideEventType = "signal"
	RideEventChat         RideEventType = "chat"
)

// RideEvent is published once per committed mutation, after the transaction
// commits. Subscribers never observe partial state: the Ride snapshot is the
// post-commit document.
type RideEvent struct {
	Type      RideEventType      `json:"type"`
	RideID    primitive.ObjectID `json:"ride_id"`
	UserID    primitive.ObjectID `json:"user_id,omitempty"`
	Ride      *models.Ride       `json:"ride,omitempty"`
	Message   *models.Message    `json:"message,omitempty"`
	Signal    *models.Signal     `json:"signal,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// EventPublisher fans committed ride events out to live subscribers
// (websocket hub, redis channel, push notification pipeline). Publishing is
// best effort and never affects the committed transaction.
type EventPublisher interface {
	PublishRideEvent(ctx context.Context, event *RideEvent)
}

func newRideEvent(typ RideEventType, ride *models.Ride, userID primitive.ObjectID) *RideEvent {
	return &RideEvent{
		Type:      typ,
		RideID:    ride.ID,
		UserID:    userID,
		Ride:      ride,
		Timestamp: time.Now(),
	}
}
