package interfaces

import (
	"context"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository reads profiles owned by the account subsystem. This service
// never writes them.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)

	// ListDriverIDs returns the ids of all active driver accounts. Used to
	// alert candidate responders when an emergency opens.
	ListDriverIDs(ctx context.Context) ([]primitive.ObjectID, error)
}
