package services

import (
	"context"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/internal/utils"
	"campusride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateRideRequest is the driver's published availability.
type CreateRideRequest struct {
	CarID          primitive.ObjectID `json:"car_id" validate:"required"`
	AvailableSeats int                `json:"available_seats" validate:"required,min=1,max=8"`
	ToCampus       *bool              `json:"to_campus" validate:"required"`
	Location       models.Place       `json:"location" validate:"required"`
	DepartureTime  time.Time          `json:"departure_time" validate:"required"`
	Fare           float64            `json:"fare" validate:"min=0"`
}

// LifecycleService owns the driver-side ride transitions: publishing a ride,
// starting it, cancelling it, and completing it. The clock is injectable so
// the departure-window guard can be tested at exact boundaries.
type LifecycleService struct {
	rides    interfaces.RideRepository
	cars     interfaces.CarRepository
	users    interfaces.UserRepository
	messages interfaces.MessageRepository
	tx       interfaces.TxRunner
	events   EventPublisher
	logger   *logger.Logger
	now      func() time.Time
}

func NewLifecycleService(
	rides interfaces.RideRepository,
	cars interfaces.CarRepository,
	users interfaces.UserRepository,
	messages interfaces.MessageRepository,
	tx interfaces.TxRunner,
	events EventPublisher,
	log *logger.Logger,
) *LifecycleService {
	return &LifecycleService{
		rides:    rides,
		cars:     cars,
		users:    users,
		messages: messages,
		tx:       tx,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// CreateRide publishes availability for a driver. The driver must hold the
// driver role, own the car, and not already be in a non-terminal ride.
func (s *LifecycleService) CreateRide(ctx context.Context, driverID primitive.ObjectID, req *CreateRideRequest) (*models.Ride, error) {
	var created *models.Ride

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		driver, err := s.users.GetByID(ctx, driverID)
		if err != nil {
			return err
		}
		if !driver.IsDriver {
			return models.ErrNotAuthorized
		}

		car, err := s.cars.GetByID(ctx, req.CarID)
		if err != nil {
			return err
		}
		if car.DriverID != driverID {
			return models.ErrNotAuthorized
		}

		// The driver occupies one of the car's seats.
		maxSeats := car.Capacity - 1
		if maxSeats > utils.MaxSeats {
			maxSeats = utils.MaxSeats
		}
		if req.AvailableSeats < 1 || req.AvailableSeats > maxSeats {
			return models.ErrInvalidSeats
		}
		if !req.DepartureTime.After(s.now()) {
			return models.ErrDepartureInPast
		}

		active, err := s.rides.GetActiveByUser(ctx, driverID)
		if err != nil {
			return err
		}
		if active != nil {
			return models.ErrAlreadyInActiveRide
		}

		ride := &models.Ride{
			DriverID:       driverID,
			CarID:          req.CarID,
			Passengers:     []primitive.ObjectID{},
			AvailableSeats: req.AvailableSeats,
			ToCampus:       *req.ToCampus,
			Location:       req.Location,
			DepartureTime:  req.DepartureTime,
			Fare:           req.Fare,
			CreatedAt:      s.now(),
		}
		if err := s.rides.Create(ctx, ride); err != nil {
			return err
		}
		created = ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.PublishRideEvent(ctx, newRideEvent(RideEventCreated, created, driverID))
	s.logger.WithUserID(driverID).LogRideEvent(created.ID, string(RideEventCreated), map[string]interface{}{
		"seats":     created.AvailableSeats,
		"to_campus": created.ToCampus,
	})
	return created, nil
}

// StartRide marks the ride ongoing. Driver only, pending only. No system
// message is written; the started_at timestamp itself is the record.
func (s *LifecycleService) StartRide(ctx context.Context, rideID, userID primitive.ObjectID) error {
	var started *models.Ride

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != userID {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStatePending {
			return models.ErrRideNotPending
		}

		at := s.now()
		if err := s.rides.SetStarted(ctx, rideID, at); err != nil {
			return err
		}
		ride.StartedAt = &at
		started = ride
		return nil
	})
	if err != nil {
		return err
	}

	s.events.PublishRideEvent(ctx, newRideEvent(RideEventStarted, started, userID))
	s.logger.WithUserID(userID).LogRideEvent(rideID, string(RideEventStarted), nil)
	return nil
}

// CancelRide cancels a pending ride. Driver only, and only while the
// cancellation window still holds: once departure is less than the window
// away passengers are counting on the seat, so the driver is held to the
// ride.
func (s *LifecycleService) CancelRide(ctx context.Context, rideID, userID primitive.ObjectID) error {
	var (
		cancelled *models.Ride
		msg       *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != userID {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStatePending {
			return models.ErrRideNotPending
		}
		if ride.DepartureTime.Sub(s.now()) < utils.CancelWindow {
			return models.ErrTooCloseToDeparture
		}

		at := s.now()
		if err := s.rides.SetCancelled(ctx, rideID, at); err != nil {
			return err
		}
		m := models.NewSystemMessage(rideID, models.MessageTypeRideCancelled, userID, "ride cancelled by driver", at, userID)
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		ride.CancelledAt = &at
		cancelled, msg = ride, m
		return nil
	})
	if err != nil {
		return err
	}

	evt := newRideEvent(RideEventCancelled, cancelled, userID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)
	s.logger.WithUserID(userID).LogRideEvent(rideID, string(RideEventCancelled), map[string]interface{}{
		"passengers": len(cancelled.Passengers),
	})
	return nil
}

// CompleteRide finishes an ongoing ride. Driver only. While an SOS record is
// attached the original driver cannot complete: the emergency flow owns the
// terminal transition and only the responder closes it out.
func (s *LifecycleService) CompleteRide(ctx context.Context, rideID, userID primitive.ObjectID) error {
	var (
		completed *models.Ride
		msg       *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != userID {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStateOngoing {
			return models.ErrRideNotOngoing
		}
		if ride.SOS != nil {
			return models.ErrSOSActive
		}

		at := s.now()
		if err := s.rides.SetCompleted(ctx, rideID, at); err != nil {
			return err
		}
		m := models.NewSystemMessage(rideID, models.MessageTypeRideCompleted, userID, "ride completed", at, userID)
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		ride.CompletedAt = &at
		completed, msg = ride, m
		return nil
	})
	if err != nil {
		return err
	}

	evt := newRideEvent(RideEventCompleted, completed, userID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)
	s.logger.WithUserID(userID).LogRideEvent(rideID, string(RideEventCompleted), map[string]interface{}{
		"fare_total": SettledFare(completed),
	})
	return nil
}

// SettledFare is the derived amount owed to the driver for a completed ride:
// the per-seat fare times the seats that were occupied at completion. There
// is no payment ledger; settlement happens off-platform.
func SettledFare(ride *models.Ride) float64 {
	if ride.CompletedAt == nil {
		return 0
	}
	return ride.Fare * float64(len(ride.Passengers))
}
