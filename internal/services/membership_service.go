package services

import (
	"context"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/internal/utils"
	"campusride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipService answers read-side questions: which ride a user is
// currently in, the upcoming-rides board, and a driver's ride history. The
// active-ride lookup is cached briefly in redis; mutation paths never read
// through this cache, they re-query inside their transaction.
type MembershipService struct {
	rides  interfaces.RideRepository
	cache  CacheService
	logger *logger.Logger
}

func NewMembershipService(rides interfaces.RideRepository, cache CacheService, log *logger.Logger) *MembershipService {
	return &MembershipService{
		rides:  rides,
		cache:  cache,
		logger: log,
	}
}

// ActiveRideFor returns the non-terminal ride the user participates in, or
// nil when they are free.
func (s *MembershipService) ActiveRideFor(ctx context.Context, userID primitive.ObjectID) (*models.Ride, error) {
	key := activeRideKey(userID.Hex())
	if s.cache != nil {
		var cached models.Ride
		if err := s.cache.Get(ctx, key, &cached); err == nil && !cached.ID.IsZero() {
			return &cached, nil
		}
	}

	ride, err := s.rides.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ride != nil && s.cache != nil {
		if err := s.cache.Set(ctx, key, ride, utils.ActiveRideCacheTTL); err != nil {
			s.logger.WithError(err).WithUserID(userID).Warn("active ride cache write failed")
		}
	}
	return ride, nil
}

// InvalidateActiveRide drops the cached active-ride entries for the affected
// users after a committed membership change.
func (s *MembershipService) InvalidateActiveRide(ctx context.Context, userIDs ...primitive.ObjectID) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, activeRideKey(id.Hex()))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).Warn("active ride cache invalidation failed")
	}
}

// ListUpcoming is the public board of pending rides, optionally filtered by
// direction, ordered by departure time.
func (s *MembershipService) ListUpcoming(ctx context.Context, toCampus *bool, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rides.ListUpcoming(ctx, toCampus, params)
}

// ListByDriver returns the rides a driver has published, newest first.
func (s *MembershipService) ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rides.ListByDriver(ctx, driverID, params)
}

// GetRide loads one ride for a participant or for the public board (pending
// rides are visible to everyone, active and terminal rides to participants).
func (s *MembershipService) GetRide(ctx context.Context, rideID primitive.ObjectID, viewerID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.State() != models.RideStatePending && !ride.Involves(viewerID) {
		return nil, models.ErrNotAuthorized
	}
	return ride, nil
}
