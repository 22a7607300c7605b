package interfaces

import (
	"context"
	"time"

	"campusride/internal/models"
	"campusride/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideRepository persists the ride aggregate. Mutators that touch contended
// fields (passengers, the SOS claim) assert their precondition in the write
// itself, so a stale caller surfaces a named error instead of clobbering a
// concurrent commit. All mutators are meant to run inside TxRunner
// transactions together with their system-message appends.
type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)

	// GetActiveByUser returns the non-terminal ride the user participates in
	// (as driver, passenger, or claimed SOS responder), or nil when none.
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Ride, error)

	// ListUpcoming returns pending rides ordered by departure time,
	// optionally filtered by direction.
	ListUpcoming(ctx context.Context, toCampus *bool, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	// ListEmergencies is the global emergency feed: rides with a triggered,
	// unclaimed SOS and no terminal flag.
	ListEmergencies(ctx context.Context) ([]*models.Ride, error)

	ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	// SetPassengers replaces the passenger list. expectedLen is the length
	// observed at read time; a mismatch at write time means a concurrent
	// booking won and the caller must re-validate.
	SetPassengers(ctx context.Context, id primitive.ObjectID, passengers []primitive.ObjectID, expectedLen int) error

	SetStarted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error

	// SetSOS attaches the emergency sub-record; fails with ErrSOSAlreadyActive
	// when one is already present.
	SetSOS(ctx context.Context, id primitive.ObjectID, sos *models.SOSRecord) error

	// ClaimSOS sets sos.responded_by and sos.car_id if and only if the SOS
	// is still unclaimed; a lost race fails with ErrAlreadyResponded.
	ClaimSOS(ctx context.Context, id primitive.ObjectID, responderID, carID primitive.ObjectID) error

	SetSOSStarted(ctx context.Context, id primitive.ObjectID, at time.Time) error
}
