package interfaces

import (
	"context"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageRepository is the per-ride event log. Append runs inside the same
// transaction as the ride mutation it reports; MarkRead is the only
// permitted mutation of an existing record.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListByRide(ctx context.Context, rideID primitive.ObjectID, limit int64) ([]*models.Message, error)

	// MarkRead adds userID to the message's read receipts; appending an
	// already-present reader is a no-op.
	MarkRead(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) error
}
