package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User is a profile owned by the account subsystem; this service only reads
// it (roles, contact info, device tokens, emergency contacts). A user can
// hold both roles at once.
type User struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FirstName         string             `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName          string             `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email             string             `json:"email" bson:"email" validate:"required,email"`
	Phone             string             `json:"phone" bson:"phone" validate:"required"`
	IsDriver          bool               `json:"is_driver" bson:"is_driver"`
	IsPassenger       bool               `json:"is_passenger" bson:"is_passenger"`
	Status            UserStatus         `json:"status" bson:"status" default:"active"`
	DeviceTokens      []DeviceToken      `json:"device_tokens" bson:"device_tokens"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts" bson:"emergency_contacts"`
	Notifications     NotificationPrefs  `json:"notifications" bson:"notifications"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
	DeletedAt         *time.Time         `json:"deleted_at" bson:"deleted_at"`
}

type DeviceToken struct {
	Token    string `json:"token" bson:"token"`
	Platform string `json:"platform" bson:"platform"` // android, ios
}

type EmergencyContact struct {
	Name  string `json:"name" bson:"name"`
	Phone string `json:"phone" bson:"phone" validate:"required"`
}

type NotificationPrefs struct {
	PushEnabled bool `json:"push_enabled" bson:"push_enabled" default:"true"`
	SMSEnabled  bool `json:"sms_enabled" bson:"sms_enabled" default:"true"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
