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

type messageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) interfaces.MessageRepository {
	return &messageRepository{
		collection: db.Collection("messages"),
	}
}

func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	if message.ReadBy == nil {
		message.ReadBy = []primitive.ObjectID{}
	}

	_, err := r.collection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

func (r *messageRepository) ListByRide(ctx context.Context, rideID primitive.ObjectID, limit int64) ([]*models.Message, error) {
	filter := bson.M{"ride_id": rideID}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}).SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		var message models.Message
		if err := cursor.Decode(&message); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) error {
	// $addToSet keeps re-reads idempotent.
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrMessageNotFound
	}

	return nil
}
