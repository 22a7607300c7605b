package services

import (
	"context"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/pkg/logger"
	"campusride/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoutePlan is the live-tracking route for one viewer: where the active car
// is now, where it is headed, and the provider's best route between them.
type RoutePlan struct {
	Origin      maps.Location   `json:"origin"`
	Destination maps.Location   `json:"destination"`
	Waypoints   []maps.Location `json:"waypoints,omitempty"`
	Route       *maps.Route     `json:"route"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ETAService turns the signal feed into a routed ETA. Which car is "the"
// car depends on the SOS state: before a claim the original driver is
// tracked; after a claim the responder is, with the stranded car as a
// waypoint until the pickup leg starts.
type ETAService struct {
	rides   interfaces.RideRepository
	signals interfaces.SignalRepository
	maps    maps.Provider
	logger  *logger.Logger
	now     func() time.Time
}

func NewETAService(
	rides interfaces.RideRepository,
	signals interfaces.SignalRepository,
	provider maps.Provider,
	log *logger.Logger,
) *ETAService {
	return &ETAService{
		rides:   rides,
		signals: signals,
		maps:    provider,
		logger:  log,
		now:     time.Now,
	}
}

// RouteForViewer computes the current route for a ride participant.
func (s *ETAService) RouteForViewer(ctx context.Context, rideID, viewerID primitive.ObjectID) (*RoutePlan, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.Involves(viewerID) {
		return nil, models.ErrNotAuthorized
	}
	if ride.State() != models.RideStateOngoing {
		return nil, models.ErrRideNotOngoing
	}

	plan := &RoutePlan{
		Destination: maps.Location{
			Latitude:  ride.Location.Latitude(),
			Longitude: ride.Location.Longitude(),
		},
		GeneratedAt: s.now(),
	}

	responder := ride.SOSResponder()
	switch {
	case responder.IsZero():
		// Normal tracking, or an unclaimed SOS: the original driver is
		// still the car to follow.
		origin, err := s.latestLocation(ctx, rideID, ride.DriverID)
		if err != nil {
			return nil, err
		}
		plan.Origin = *origin

	case ride.SOS.StartedAt != nil:
		// Pickup done; the responder is driving everyone to the original
		// destination.
		origin, err := s.latestLocation(ctx, rideID, responder)
		if err != nil {
			return nil, err
		}
		plan.Origin = *origin

	default:
		// Claimed but not started: the responder is heading to the
		// stranded car first.
		origin, err := s.latestLocation(ctx, rideID, responder)
		if err != nil {
			return nil, err
		}
		plan.Origin = *origin
		if stranded, err := s.latestLocation(ctx, rideID, ride.DriverID); err == nil {
			plan.Waypoints = []maps.Location{*stranded}
		}
	}

	req := &maps.DirectionsRequest{
		Origin:      plan.Origin,
		Destination: plan.Destination,
		Waypoints:   plan.Waypoints,
		Mode:        "driving",
	}
	resp, err := s.maps.GetDirections(ctx, req)
	if err != nil {
		s.logger.WithError(err).WithRideID(rideID).Error("directions lookup failed")
		return nil, err
	}
	if len(resp.Routes) > 0 {
		plan.Route = &resp.Routes[0]
	}
	return plan, nil
}

func (s *ETAService) latestLocation(ctx context.Context, rideID, userID primitive.ObjectID) (*maps.Location, error) {
	sig, err := s.signals.LatestByUser(ctx, rideID, userID)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, models.ErrNoSignal
	}
	return &maps.Location{Latitude: sig.Latitude, Longitude: sig.Longitude}, nil
}
