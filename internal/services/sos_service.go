package services

import (
	"context"
	"fmt"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/pkg/logger"
	"campusride/pkg/sms"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SOSService runs the emergency sub-protocol attached to ongoing rides:
// trigger, exclusive responder claim, the responder's pickup leg, and the
// terminal completion of the stranded ride. Claims are first-wins; the store
// guarantees at most one responder ever commits.
type SOSService struct {
	rides    interfaces.RideRepository
	cars     interfaces.CarRepository
	users    interfaces.UserRepository
	messages interfaces.MessageRepository
	tx       interfaces.TxRunner
	events   EventPublisher
	sms      sms.Sender
	logger   *logger.Logger
	now      func() time.Time
}

func NewSOSService(
	rides interfaces.RideRepository,
	cars interfaces.CarRepository,
	users interfaces.UserRepository,
	messages interfaces.MessageRepository,
	tx interfaces.TxRunner,
	events EventPublisher,
	smsSender sms.Sender,
	log *logger.Logger,
) *SOSService {
	return &SOSService{
		rides:    rides,
		cars:     cars,
		users:    users,
		messages: messages,
		tx:       tx,
		events:   events,
		sms:      smsSender,
		logger:   log,
		now:      time.Now,
	}
}

// TriggerSOS raises an emergency on an ongoing ride. Any participant (driver
// or passenger) may trigger; a second trigger fails with ErrSOSAlreadyActive.
// After commit the triggering user's emergency contacts are texted.
func (s *SOSService) TriggerSOS(ctx context.Context, rideID, userID primitive.ObjectID) error {
	var (
		updated *models.Ride
		msg     *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != userID && !ride.HasPassenger(userID) {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStateOngoing {
			return models.ErrRideNotOngoing
		}
		if ride.SOS != nil {
			return models.ErrSOSAlreadyActive
		}

		record := &models.SOSRecord{
			TriggeredAt: s.now(),
			TriggeredBy: userID,
		}
		if err := s.rides.SetSOS(ctx, rideID, record); err != nil {
			return err
		}
		m := models.NewSystemMessage(rideID, models.MessageTypeSOS, userID, "SOS triggered", record.TriggeredAt, userID)
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		ride.SOS = record
		updated, msg = ride, m
		return nil
	})
	if err != nil {
		return err
	}

	evt := newRideEvent(RideEventSOSTriggered, updated, userID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)
	s.logger.WithUserID(userID).LogRideEvent(rideID, string(RideEventSOSTriggered), nil)

	go s.alertEmergencyContacts(context.Background(), updated, userID)
	return nil
}

// RespondToSOS claims an open emergency for a responding driver. The claim is
// exclusive: of k concurrent responders exactly one commits, the rest fail
// with ErrAlreadyResponded. The ride's own driver cannot respond. A zero
// carID resolves to the responder's registered car.
func (s *SOSService) RespondToSOS(ctx context.Context, rideID, responderID, carID primitive.ObjectID) error {
	var (
		updated *models.Ride
		msg     *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID == responderID {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStateOngoing {
			return models.ErrRideNotOngoing
		}
		if ride.SOS == nil {
			return models.ErrSOSNotActive
		}
		if ride.SOS.RespondedBy != nil {
			return models.ErrAlreadyResponded
		}

		responder, err := s.users.GetByID(ctx, responderID)
		if err != nil {
			return err
		}
		if !responder.IsDriver {
			return models.ErrNotAuthorized
		}
		if carID.IsZero() {
			cars, err := s.cars.GetByDriver(ctx, responderID)
			if err != nil {
				return err
			}
			if len(cars) == 0 {
				return models.ErrCarNotFound
			}
			carID = cars[0].ID
		} else {
			car, err := s.cars.GetByID(ctx, carID)
			if err != nil {
				return err
			}
			if car.DriverID != responderID {
				return models.ErrNotAuthorized
			}
		}

		if err := s.rides.ClaimSOS(ctx, rideID, responderID, carID); err != nil {
			return err
		}
		m := models.NewSystemMessage(rideID, models.MessageTypeSOSResponse, responderID, "a driver is coming to help", s.now(), responderID)
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		ride.SOS.RespondedBy = &responderID
		ride.SOS.CarID = &carID
		updated, msg = ride, m
		return nil
	})
	if err != nil {
		return err
	}

	evt := newRideEvent(RideEventSOSResponded, updated, responderID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)
	s.logger.WithUserID(responderID).LogRideEvent(rideID, string(RideEventSOSResponded), nil)
	return nil
}

// StartSOSRide marks the responder's pickup leg as underway. Only the claimed
// responder may start it, and only once.
func (s *SOSService) StartSOSRide(ctx context.Context, rideID, responderID primitive.ObjectID) error {
	var updated *models.Ride

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.SOS == nil {
			return models.ErrSOSNotActive
		}
		if ride.SOS.RespondedBy == nil || *ride.SOS.RespondedBy != responderID {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStateOngoing {
			return models.ErrRideNotOngoing
		}
		if ride.SOS.StartedAt != nil {
			return models.ErrSOSAlreadyStarted
		}

		at := s.now()
		if err := s.rides.SetSOSStarted(ctx, rideID, at); err != nil {
			return err
		}
		ride.SOS.StartedAt = &at
		updated = ride
		return nil
	})
	if err != nil {
		return err
	}

	s.events.PublishRideEvent(ctx, newRideEvent(RideEventSOSStarted, updated, responderID))
	s.logger.WithUserID(responderID).LogRideEvent(rideID, string(RideEventSOSStarted), nil)
	return nil
}

// CompleteSOSRide ends the emergency and the stranded ride together. Only the
// claimed responder may complete, and only after starting the pickup leg.
// This is the single terminal transition available while an SOS is attached.
func (s *SOSService) CompleteSOSRide(ctx context.Context, rideID, responderID primitive.ObjectID) error {
	var (
		updated *models.Ride
		msg     *models.Message
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.SOS == nil {
			return models.ErrSOSNotActive
		}
		if ride.SOS.RespondedBy == nil || *ride.SOS.RespondedBy != responderID {
			return models.ErrNotAuthorized
		}
		if ride.State() != models.RideStateOngoing {
			return models.ErrRideNotOngoing
		}
		if ride.SOS.StartedAt == nil {
			return models.ErrSOSNotStarted
		}

		at := s.now()
		if err := s.rides.SetCompleted(ctx, rideID, at); err != nil {
			return err
		}
		m := models.NewSystemMessage(rideID, models.MessageTypeRideCompleted, responderID, "emergency resolved, ride completed", at, responderID)
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		ride.CompletedAt = &at
		updated, msg = ride, m
		return nil
	})
	if err != nil {
		return err
	}

	evt := newRideEvent(RideEventCompleted, updated, responderID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)
	s.logger.WithUserID(responderID).LogRideEvent(rideID, string(RideEventCompleted), map[string]interface{}{
		"sos_resolved": true,
	})
	return nil
}

// EmergencyFeed lists rides with an open, unclaimed SOS for the responder
// dashboard.
func (s *SOSService) EmergencyFeed(ctx context.Context) ([]*models.Ride, error) {
	return s.rides.ListEmergencies(ctx)
}

func (s *SOSService) alertEmergencyContacts(ctx context.Context, ride *models.Ride, userID primitive.ObjectID) {
	if s.sms == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithUserID(userID).Error("sos: loading emergency contacts failed")
		return
	}
	body := fmt.Sprintf("%s triggered an SOS during a campus ride near %s. Open the app for live updates.",
		user.FullName(), ride.Location.Name)
	for _, contact := range user.EmergencyContacts {
		if err := s.sms.SendSMS(ctx, contact.Phone, body); err != nil {
			s.logger.WithError(err).WithUserID(userID).WithField("contact", contact.Name).
				Error("sos: emergency contact sms failed")
		}
	}
}
