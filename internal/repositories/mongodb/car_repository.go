package mongodb

import (
	"context"
	"fmt"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type carRepository struct {
	collection *mongo.Collection
}

func NewCarRepository(db *mongo.Database) interfaces.CarRepository {
	return &carRepository{
		collection: db.Collection("cars"),
	}
}

func (r *carRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error) {
	var car models.Car
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deleted_at": nil}).Decode(&car)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrCarNotFound
		}
		return nil, fmt.Errorf("failed to get car: %w", err)
	}

	return &car, nil
}

func (r *carRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Car, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"driver_id": driverID, "deleted_at": nil})
	if err != nil {
		return nil, fmt.Errorf("failed to get cars: %w", err)
	}
	defer cursor.Close(ctx)

	var cars []*models.Car
	for cursor.Next(ctx) {
		var car models.Car
		if err := cursor.Decode(&car); err != nil {
			return nil, fmt.Errorf("failed to decode car: %w", err)
		}
		cars = append(cars, &car)
	}

	return cars, nil
}
