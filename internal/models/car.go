package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Car is a vehicle record owned by the account subsystem and referenced by
// id from rides and SOS claims.
type Car struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID     primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	Make         string             `json:"make" bson:"make" validate:"required"`
	Model        string             `json:"model" bson:"model" validate:"required"`
	Color        string             `json:"color" bson:"color"`
	LicensePlate string             `json:"license_plate" bson:"license_plate" validate:"required"`
	Capacity     int                `json:"capacity" bson:"capacity" validate:"required,min=1"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	DeletedAt    *time.Time         `json:"deleted_at" bson:"deleted_at"`
}
