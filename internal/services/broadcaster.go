package services

import (
	"context"

	"campusride/pkg/logger"
	"campusride/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideEventChannel is the redis channel other server instances subscribe to
// so their websocket hubs can relay events for locally connected clients.
const RideEventChannel = "ride_events"

// Broadcaster is the post-commit fan-out: websocket rooms for connected
// clients, a redis channel for the other instances, and the push pipeline
// for everyone else. Any leg may be nil.
type Broadcaster struct {
	hub        *websocket.Hub
	cache      CacheService
	membership *MembershipService
	notifier   *NotificationService
	logger     *logger.Logger
}

func NewBroadcaster(hub *websocket.Hub, cache CacheService, membership *MembershipService, notifier *NotificationService, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		hub:        hub,
		cache:      cache,
		membership: membership,
		notifier:   notifier,
		logger:     log,
	}
}

func (b *Broadcaster) PublishRideEvent(ctx context.Context, event *RideEvent) {
	b.invalidateMembership(ctx, event)

	if b.hub != nil {
		b.hub.BroadcastRideEvent(event.RideID, string(event.Type), event)
		if event.Type == RideEventSOSTriggered {
			b.hub.BroadcastEmergency(event.RideID, event)
		}
	}

	if b.cache != nil {
		if err := b.cache.Publish(ctx, RideEventChannel, event); err != nil {
			b.logger.WithError(err).WithRideID(event.RideID).Warn("ride event publish failed")
		}
	}

	if b.notifier != nil {
		// Pushes run detached from the request so a slow provider never
		// blocks the response.
		go b.notifier.HandleRideEvent(context.Background(), event)
	}
}

// invalidateMembership drops the cached active-ride entries for everyone the
// event's ride involves, so the membership view re-reads the store on the
// next lookup instead of waiting out the TTL.
func (b *Broadcaster) invalidateMembership(ctx context.Context, event *RideEvent) {
	if b.membership == nil || event.Ride == nil {
		return
	}
	affected := []primitive.ObjectID{event.UserID, event.Ride.DriverID}
	affected = append(affected, event.Ride.Passengers...)
	if responder := event.Ride.SOSResponder(); !responder.IsZero() {
		affected = append(affected, responder)
	}
	b.membership.InvalidateActiveRide(ctx, affected...)
}
