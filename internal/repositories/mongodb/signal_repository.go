package mongodb

import (
	"context"
	"fmt"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type signalRepository struct {
	collection *mongo.Collection
}

func NewSignalRepository(db *mongo.Database) interfaces.SignalRepository {
	return &signalRepository{
		collection: db.Collection("signals"),
	}
}

func (r *signalRepository) Append(ctx context.Context, signal *models.Signal) error {
	signal.ID = primitive.NewObjectID()
	if signal.Timestamp.IsZero() {
		signal.Timestamp = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, signal)
	if err != nil {
		return fmt.Errorf("failed to append signal: %w", err)
	}

	return nil
}

func (r *signalRepository) LatestByUser(ctx context.Context, rideID, userID primitive.ObjectID) (*models.Signal, error) {
	filter := bson.M{"ride_id": rideID, "user_id": userID}
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var signal models.Signal
	err := r.collection.FindOne(ctx, filter, opts).Decode(&signal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest signal: %w", err)
	}

	return &signal, nil
}

func (r *signalRepository) ListByRide(ctx context.Context, rideID primitive.ObjectID, limit int64) ([]*models.Signal, error) {
	filter := bson.M{"ride_id": rideID}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer cursor.Close(ctx)

	var signals []*models.Signal
	for cursor.Next(ctx) {
		var signal models.Signal
		if err := cursor.Decode(&signal); err != nil {
			return nil, fmt.Errorf("failed to decode signal: %w", err)
		}
		signals = append(signals, &signal)
	}

	return signals, nil
}
