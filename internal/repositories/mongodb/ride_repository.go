package mongodb

import (
	"context"
	"fmt"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rideRepository struct {
	collection *mongo.Collection
}

func NewRideRepository(db *mongo.Database) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	if ride.Passengers == nil {
		ride.Passengers = []primitive.ObjectID{}
	}

	_, err := r.collection.InsertOne(ctx, ride)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deleted_at": nil}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}

	return &ride, nil
}

func (r *rideRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Ride, error) {
	filter := bson.M{
		"completed_at": nil,
		"cancelled_at": nil,
		"deleted_at":   nil,
		"$or": []bson.M{
			{"driver_id": userID},
			{"passengers": userID},
			{"sos.responded_by": userID},
		},
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, filter).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active ride: %w", err)
	}

	return &ride, nil
}

func (r *rideRepository) ListUpcoming(ctx context.Context, toCampus *bool, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{
		"started_at":   nil,
		"completed_at": nil,
		"cancelled_at": nil,
		"deleted_at":   nil,
		"departure_time": bson.M{
			"$gte": time.Now(),
		},
	}
	if toCampus != nil {
		filter["to_campus"] = *toCampus
	}

	return r.findRidesWithFilter(ctx, filter, params)
}

func (r *rideRepository) ListEmergencies(ctx context.Context) ([]*models.Ride, error) {
	filter := bson.M{
		"sos":              bson.M{"$ne": nil},
		"sos.responded_by": nil,
		"completed_at":     nil,
		"cancelled_at":     nil,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sos.triggered_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find emergency rides: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}

	return rides, nil
}

func (r *rideRepository) ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{"driver_id": driverID, "deleted_at": nil}
	return r.findRidesWithFilter(ctx, filter, params)
}

// SetPassengers replaces the passenger list, guarded by the length observed
// at read time. A zero match against an existing document means a concurrent
// writer got there first; the caller re-reads and re-validates.
func (r *rideRepository) SetPassengers(ctx context.Context, id primitive.ObjectID, passengers []primitive.ObjectID, expectedLen int) error {
	if passengers == nil {
		passengers = []primitive.ObjectID{}
	}

	filter := bson.M{
		"_id":          id,
		"passengers":   bson.M{"$size": expectedLen},
		"completed_at": nil,
		"cancelled_at": nil,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"passengers": passengers}})
	if err != nil {
		return fmt.Errorf("failed to update passengers: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.resolvePassengerConflict(ctx, id)
	}

	return nil
}

func (r *rideRepository) SetStarted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{
		"_id":          id,
		"started_at":   nil,
		"completed_at": nil,
		"cancelled_at": nil,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"started_at": at}})
	if err != nil {
		return fmt.Errorf("failed to start ride: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.resolveMissingOr(ctx, id, models.ErrRideNotPending)
	}

	return nil
}

func (r *rideRepository) SetCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{
		"_id":          id,
		"started_at":   nil,
		"completed_at": nil,
		"cancelled_at": nil,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"cancelled_at": at}})
	if err != nil {
		return fmt.Errorf("failed to cancel ride: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.resolveMissingOr(ctx, id, models.ErrRideNotPending)
	}

	return nil
}

func (r *rideRepository) SetCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{
		"_id":          id,
		"started_at":   bson.M{"$ne": nil},
		"completed_at": nil,
		"cancelled_at": nil,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"completed_at": at}})
	if err != nil {
		return fmt.Errorf("failed to complete ride: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.resolveMissingOr(ctx, id, models.ErrRideNotOngoing)
	}

	return nil
}

func (r *rideRepository) SetSOS(ctx context.Context, id primitive.ObjectID, sos *models.SOSRecord) error {
	filter := bson.M{
		"_id":          id,
		"started_at":   bson.M{"$ne": nil},
		"completed_at": nil,
		"cancelled_at": nil,
		"sos":          nil,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"sos": sos}})
	if err != nil {
		return fmt.Errorf("failed to trigger SOS: %w", err)
	}
	if result.MatchedCount == 0 {
		ride, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if ride.SOS != nil {
			return models.ErrSOSAlreadyActive
		}
		return models.ErrRideNotOngoing
	}

	return nil
}

// ClaimSOS is the exclusive responder assignment: the filter re-asserts that
// the claim slot is still empty, so of k racing responders exactly one
// matches and the rest observe ErrAlreadyResponded.
func (r *rideRepository) ClaimSOS(ctx context.Context, id primitive.ObjectID, responderID, carID primitive.ObjectID) error {
	filter := bson.M{
		"_id":              id,
		"sos":              bson.M{"$ne": nil},
		"sos.responded_by": nil,
		"completed_at":     nil,
		"cancelled_at":     nil,
	}

	update := bson.M{"$set": bson.M{
		"sos.responded_by": responderID,
		"sos.car_id":       carID,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to claim SOS: %w", err)
	}
	if result.MatchedCount == 0 {
		ride, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if ride.SOS == nil {
			return models.ErrSOSNotActive
		}
		if ride.SOS.RespondedBy != nil {
			return models.ErrAlreadyResponded
		}
		return models.ErrRideNotOngoing
	}

	return nil
}

func (r *rideRepository) SetSOSStarted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{
		"_id":              id,
		"sos.responded_by": bson.M{"$ne": nil},
		"sos.started_at":   nil,
		"completed_at":     nil,
		"cancelled_at":     nil,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"sos.started_at": at}})
	if err != nil {
		return fmt.Errorf("failed to start SOS ride: %w", err)
	}
	if result.MatchedCount == 0 {
		ride, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ride.SOS != nil && ride.SOS.StartedAt != nil {
			return models.ErrSOSAlreadyStarted
		}
		return models.ErrSOSNotActive
	}

	return nil
}

// Helper methods
func (r *rideRepository) findRidesWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find rides: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, 0, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}

	return rides, total, nil
}

func (r *rideRepository) resolveMissingOr(ctx context.Context, id primitive.ObjectID, fallback error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fallback
}

func (r *rideRepository) resolvePassengerConflict(ctx context.Context, id primitive.ObjectID) error {
	ride, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ride.IsTerminal() {
		return models.ErrRideNotBookable
	}
	// The passenger list changed under us; surface the race and let the
	// caller re-read and re-validate.
	return models.ErrConflict
}
