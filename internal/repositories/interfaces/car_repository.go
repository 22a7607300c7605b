package interfaces

import (
	"context"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CarRepository reads vehicle records owned by the account subsystem.
type CarRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Car, error)
}
