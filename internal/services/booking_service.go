package services

import (
	"context"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingService manages seat membership on pending rides: booking a seat,
// leaving a ride, and the confirmed swap from one pending ride to another.
// Every mutation runs inside a single transaction so capacity checks and the
// membership write are atomic.
type BookingService struct {
	rides    interfaces.RideRepository
	messages interfaces.MessageRepository
	tx       interfaces.TxRunner
	events   EventPublisher
	logger   *logger.Logger
	now      func() time.Time
}

func NewBookingService(
	rides interfaces.RideRepository,
	messages interfaces.MessageRepository,
	tx interfaces.TxRunner,
	events EventPublisher,
	log *logger.Logger,
) *BookingService {
	return &BookingService{
		rides:    rides,
		messages: messages,
		tx:       tx,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// BookRide reserves a seat for userID on the ride. If the user is already a
// passenger on another pending ride, the booking fails with
// ErrAlreadyInActiveRide unless confirmSwap is set, in which case the user is
// removed from the old ride and added to the new one in the same transaction.
func (s *BookingService) BookRide(ctx context.Context, rideID, userID primitive.ObjectID, confirmSwap bool) error {
	var (
		booked  *models.Ride
		left    *models.Ride
		joinMsg *models.Message
		leftMsg *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		booked, left, joinMsg, leftMsg = nil, nil, nil, nil

		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.State() != models.RideStatePending {
			return models.ErrRideNotBookable
		}
		if ride.DriverID == userID {
			return models.ErrAlreadyInActiveRide
		}
		if ride.HasPassenger(userID) {
			return models.ErrAlreadyInActiveRide
		}

		active, err := s.rides.GetActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			if !confirmSwap {
				return models.ErrAlreadyInActiveRide
			}
			// A swap only moves a waiting passenger. Drivers, SOS
			// responders and riders on an ongoing trip stay put.
			if active.DriverID == userID || active.State() != models.RideStatePending || !active.HasPassenger(userID) {
				return models.ErrAlreadyInActiveRide
			}

			prevLen := len(active.Passengers)
			active.RemovePassenger(userID)
			if err := s.rides.SetPassengers(ctx, active.ID, active.Passengers, prevLen); err != nil {
				return err
			}
			msg := models.NewSystemMessage(active.ID, models.MessageTypePassengerLeft, userID, "left the ride", s.now(), userID)
			if err := s.messages.Append(ctx, msg); err != nil {
				return err
			}
			left, leftMsg = active, msg
		}

		if ride.SeatsRemaining() <= 0 {
			return models.ErrRideFull
		}

		prevLen := len(ride.Passengers)
		ride.Passengers = append(ride.Passengers, userID)
		if err := s.rides.SetPassengers(ctx, ride.ID, ride.Passengers, prevLen); err != nil {
			return err
		}
		msg := models.NewSystemMessage(ride.ID, models.MessageTypePassengerJoined, userID, "joined the ride", s.now(), userID)
		if err := s.messages.Append(ctx, msg); err != nil {
			return err
		}
		booked, joinMsg = ride, msg
		return nil
	})
	if err != nil {
		return err
	}

	if left != nil {
		evt := newRideEvent(RideEventBookingLeft, left, userID)
		evt.Message = leftMsg
		s.events.PublishRideEvent(ctx, evt)
	}
	evt := newRideEvent(RideEventBooked, booked, userID)
	evt.Message = joinMsg
	s.events.PublishRideEvent(ctx, evt)

	s.logger.WithUserID(userID).LogRideEvent(rideID, string(RideEventBooked), map[string]interface{}{
		"seats_remaining": booked.SeatsRemaining(),
		"swapped":         left != nil,
	})
	return nil
}

// CancelBooking removes userID from the ride's passenger list. Allowed while
// the ride is still pending; once the driver has started, seats are locked.
func (s *BookingService) CancelBooking(ctx context.Context, rideID, userID primitive.ObjectID) error {
	var (
		updated *models.Ride
		msg     *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.State() != models.RideStatePending {
			return models.ErrRideNotBookable
		}
		if !ride.HasPassenger(userID) {
			return models.ErrNotBooked
		}

		prevLen := len(ride.Passengers)
		ride.RemovePassenger(userID)
		if err := s.rides.SetPassengers(ctx, ride.ID, ride.Passengers, prevLen); err != nil {
			return err
		}
		m := models.NewSystemMessage(ride.ID, models.MessageTypePassengerLeft, userID, "left the ride", s.now(), userID)
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		updated, msg = ride, m
		return nil
	})
	if err != nil {
		return err
	}

	evt := newRideEvent(RideEventBookingLeft, updated, userID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)

	s.logger.WithUserID(userID).LogRideEvent(rideID, string(RideEventBookingLeft), nil)
	return nil
}
