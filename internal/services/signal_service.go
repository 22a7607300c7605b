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

// SignalService records the append-only location feed. Only the active
// driver may report: the ride's own driver while no responder has claimed
// the SOS, the claimed responder afterwards. Each append validates the
// parent ride in the same transaction so a signal can never land on a
// terminal ride.
type SignalService struct {
	rides   interfaces.RideRepository
	signals interfaces.SignalRepository
	tx      interfaces.TxRunner
	events  EventPublisher
	logger  *logger.Logger
	now     func() time.Time
}

func NewSignalService(
	rides interfaces.RideRepository,
	signals interfaces.SignalRepository,
	tx interfaces.TxRunner,
	events EventPublisher,
	log *logger.Logger,
) *SignalService {
	return &SignalService{
		rides:   rides,
		signals: signals,
		tx:      tx,
		events:  events,
		logger:  log,
		now:     time.Now,
	}
}

// Record appends a location ping for an ongoing ride.
func (s *SignalService) Record(ctx context.Context, rideID, userID primitive.ObjectID, lat, lng float64) (*models.Signal, error) {
	var (
		signal   *models.Signal
		snapshot *models.Ride
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.State() != models.RideStateOngoing {
			return models.ErrRideNotOngoing
		}
		if !s.mayReport(ride, userID) {
			return models.ErrNotAuthorized
		}

		sig := &models.Signal{
			RideID:    rideID,
			UserID:    userID,
			Latitude:  lat,
			Longitude: lng,
			Timestamp: s.now(),
		}
		if err := s.signals.Append(ctx, sig); err != nil {
			return err
		}
		signal, snapshot = sig, ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	evt := newRideEvent(RideEventSignal, snapshot, userID)
	evt.Signal = signal
	s.events.PublishRideEvent(ctx, evt)
	return signal, nil
}

// mayReport decides who holds the wheel. An unclaimed SOS leaves the
// original driver reporting; a committed claim hands the feed to the
// responder, and both may report so passengers can follow two cars.
func (s *SignalService) mayReport(ride *models.Ride, userID primitive.ObjectID) bool {
	if ride.DriverID == userID {
		return true
	}
	return ride.SOSResponder() == userID
}

// LatestByUser returns the most recent signal the given participant reported
// for the ride, or nil when they have not reported yet. Restricted to ride
// participants.
func (s *SignalService) LatestByUser(ctx context.Context, rideID, viewerID, subjectID primitive.ObjectID) (*models.Signal, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.Involves(viewerID) {
		return nil, models.ErrNotAuthorized
	}
	return s.signals.LatestByUser(ctx, rideID, subjectID)
}

// Feed lists the ride's recent signals, newest first.
func (s *SignalService) Feed(ctx context.Context, rideID primitive.ObjectID, viewerID primitive.ObjectID) ([]*models.Signal, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.Involves(viewerID) {
		return nil, models.ErrNotAuthorized
	}
	return s.signals.ListByRide(ctx, rideID, utils.SignalListLimit)
}
