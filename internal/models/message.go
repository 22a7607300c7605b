package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypePassengerJoined MessageType = "passenger_joined"
	MessageTypePassengerLeft   MessageType = "passenger_left"
	MessageTypeRideCancelled   MessageType = "ride_cancelled"
	MessageTypeRideCompleted   MessageType = "ride_completed"
	MessageTypeSOS             MessageType = "sos"
	MessageTypeSOSResponse     MessageType = "sos_response"
	MessageTypeChat            MessageType = "chat"
)

// Message is an append-only event record per ride, used for both the in-ride
// chat and system notifications. System-authored entries have a nil SenderID
// and identify their subject via UserID. Apart from ReadBy appends a message
// is never mutated. System messages are written in the same transaction as
// the ride mutation they report.
type Message struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	RideID    primitive.ObjectID   `json:"ride_id" bson:"ride_id" validate:"required"`
	SenderID  *primitive.ObjectID  `json:"sender_id" bson:"sender_id"`
	UserID    *primitive.ObjectID  `json:"user_id" bson:"user_id"`
	Type      MessageType          `json:"type" bson:"type" validate:"required"`
	Body      string               `json:"body" bson:"body"`
	ReadBy    []primitive.ObjectID `json:"read_by" bson:"read_by"`
	Timestamp time.Time            `json:"timestamp" bson:"timestamp"`
}

func (m *Message) IsSystem() bool {
	return m.SenderID == nil
}

func (m *Message) ReadByUser(userID primitive.ObjectID) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// NewSystemMessage builds a system event record about subject for the given
// ride, stamped at. readBy seeds the read receipts, typically with the acting
// user.
func NewSystemMessage(rideID primitive.ObjectID, typ MessageType, subject primitive.ObjectID, body string, at time.Time, readBy ...primitive.ObjectID) *Message {
	return &Message{
		RideID:    rideID,
		SenderID:  nil,
		UserID:    &subject,
		Type:      typ,
		Body:      body,
		ReadBy:    readBy,
		Timestamp: at,
	}
}
