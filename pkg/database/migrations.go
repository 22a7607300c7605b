package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the ride engine queries depend on.
// Idempotent; safe to run on every boot.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rideIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "completed_at", Value: 1}, {Key: "cancelled_at", Value: 1}}},
		{Keys: bson.D{{Key: "passengers", Value: 1}, {Key: "completed_at", Value: 1}, {Key: "cancelled_at", Value: 1}}},
		{Keys: bson.D{{Key: "sos.responded_by", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "departure_time", Value: 1}}},
		{Keys: bson.D{{Key: "to_campus", Value: 1}, {Key: "departure_time", Value: 1}}},
	}
	if _, err := m.Collection("rides").Indexes().CreateMany(ctx, rideIndexes); err != nil {
		return fmt.Errorf("failed to create ride indexes: %w", err)
	}

	signalIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	if _, err := m.Collection("signals").Indexes().CreateMany(ctx, signalIndexes); err != nil {
		return fmt.Errorf("failed to create signal indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "timestamp", Value: 1}}},
	}
	if _, err := m.Collection("messages").Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	carIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "driver_id", Value: 1}}},
	}
	if _, err := m.Collection("cars").Indexes().CreateMany(ctx, carIndexes); err != nil {
		return fmt.Errorf("failed to create car indexes: %w", err)
	}

	return nil
}
