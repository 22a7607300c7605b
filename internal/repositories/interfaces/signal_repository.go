package interfaces

import (
	"context"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SignalRepository is the append-only location feed. Signals are never
// updated or deleted.
type SignalRepository interface {
	Append(ctx context.Context, signal *models.Signal) error

	// LatestByUser returns the most recent signal the user reported for the
	// ride, or nil when the user has not reported yet.
	LatestByUser(ctx context.Context, rideID, userID primitive.ObjectID) (*models.Signal, error)

	ListByRide(ctx context.Context, rideID primitive.ObjectID, limit int64) ([]*models.Signal, error)
}
