package services

import (
	"context"
	"fmt"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/pkg/logger"
	"campusride/pkg/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService turns committed ride events into mobile pushes. It runs
// strictly after commit: a notification is only ever sent for state that is
// durable, and a failed send never affects the ride.
type NotificationService struct {
	users  interfaces.UserRepository
	fcm    push.Provider
	apns   push.Provider
	logger *logger.Logger
}

func NewNotificationService(users interfaces.UserRepository, fcm, apns push.Provider, log *logger.Logger) *NotificationService {
	return &NotificationService{
		users:  users,
		fcm:    fcm,
		apns:   apns,
		logger: log,
	}
}

// HandleRideEvent notifies the ride participants affected by the event,
// excluding the acting user.
func (s *NotificationService) HandleRideEvent(ctx context.Context, event *RideEvent) {
	if event.Ride == nil {
		return
	}

	title, body := s.describe(event)
	if title == "" {
		return
	}

	recipients := s.recipients(event)
	if len(recipients) == 0 {
		return
	}

	users, err := s.users.GetByIDs(ctx, recipients)
	if err != nil {
		s.logger.WithError(err).WithRideID(event.RideID).Error("notification recipient lookup failed")
		return
	}

	data := map[string]string{
		"ride_id": event.RideID.Hex(),
		"type":    string(event.Type),
	}

	for _, user := range users {
		if !user.Notifications.PushEnabled {
			continue
		}
		for _, device := range user.DeviceTokens {
			req := &push.NotificationRequest{
				Token:    device.Token,
				Title:    title,
				Body:     body,
				Data:     data,
				Priority: s.priority(event.Type),
			}
			provider := s.providerFor(device.Platform)
			if provider == nil {
				continue
			}
			if _, err := provider.SendNotification(ctx, req); err != nil {
				s.logger.WithError(err).WithUserID(user.ID).
					WithField("platform", device.Platform).
					Warn("push send failed")
			}
		}
	}

	if event.Type == RideEventSOSTriggered {
		s.notifyCandidateResponders(ctx, event)
	}
}

// notifyCandidateResponders pushes an opened emergency to driver accounts
// outside the ride, so responders who are not watching the live feed still
// see the claim opportunity.
func (s *NotificationService) notifyCandidateResponders(ctx context.Context, event *RideEvent) {
	driverIDs, err := s.users.ListDriverIDs(ctx)
	if err != nil {
		s.logger.WithError(err).WithRideID(event.RideID).Error("candidate driver lookup failed")
		return
	}
	candidates := driverIDs[:0]
	for _, id := range driverIDs {
		if !event.Ride.Involves(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) > 0 {
		s.NotifyEmergencyFeed(ctx, event.Ride, candidates)
	}
}

func (s *NotificationService) providerFor(platform string) push.Provider {
	switch platform {
	case "ios":
		return s.apns
	case "android":
		return s.fcm
	default:
		return nil
	}
}

func (s *NotificationService) priority(typ RideEventType) string {
	switch typ {
	case RideEventSOSTriggered, RideEventSOSResponded, RideEventSOSStarted:
		return "high"
	default:
		return "normal"
	}
}

// recipients is everyone on the ride except the actor.
func (s *NotificationService) recipients(event *RideEvent) []primitive.ObjectID {
	ride := event.Ride
	seen := map[primitive.ObjectID]bool{event.UserID: true}
	out := make([]primitive.ObjectID, 0, len(ride.Passengers)+2)

	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	add(ride.DriverID)
	for _, p := range ride.Passengers {
		add(p)
	}
	if resp := ride.SOSResponder(); !resp.IsZero() {
		add(resp)
	}
	return out
}

func (s *NotificationService) describe(event *RideEvent) (title, body string) {
	switch event.Type {
	case RideEventBooked:
		return "New passenger", "Someone booked a seat on your ride."
	case RideEventBookingLeft:
		return "Seat freed", "A passenger left the ride."
	case RideEventStarted:
		return "Ride started", "Your ride is on the way."
	case RideEventCancelled:
		return "Ride cancelled", "The driver cancelled the ride. Your seat is released."
	case RideEventCompleted:
		return "Ride completed", "You have arrived. Thanks for riding together."
	case RideEventSOSTriggered:
		return "SOS", "An emergency was reported on your ride."
	case RideEventSOSResponded:
		return "Help is coming", "A driver has taken over the emergency and is on the way."
	case RideEventSOSStarted:
		return "Rescue underway", "The responding driver has picked up the ride."
	case RideEventChat:
		if event.Message != nil {
			return "New message", event.Message.Body
		}
		return "New message", ""
	default:
		return "", ""
	}
}

// NotifyEmergencyFeed pushes an unclaimed SOS to a set of candidate drivers
// outside the ride.
func (s *NotificationService) NotifyEmergencyFeed(ctx context.Context, ride *models.Ride, driverIDs []primitive.ObjectID) {
	users, err := s.users.GetByIDs(ctx, driverIDs)
	if err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Error("emergency feed recipient lookup failed")
		return
	}

	body := fmt.Sprintf("A ride near %s needs a driver. Open the emergency feed to respond.", ride.Location.Name)
	for _, user := range users {
		if !user.IsDriver || !user.Notifications.PushEnabled {
			continue
		}
		for _, device := range user.DeviceTokens {
			provider := s.providerFor(device.Platform)
			if provider == nil {
				continue
			}
			req := &push.NotificationRequest{
				Token:    device.Token,
				Title:    "SOS nearby",
				Body:     body,
				Data:     map[string]string{"ride_id": ride.ID.Hex(), "type": string(RideEventSOSTriggered)},
				Priority: "high",
			}
			if _, err := provider.SendNotification(ctx, req); err != nil {
				s.logger.WithError(err).WithUserID(user.ID).Warn("emergency feed push failed")
			}
		}
	}
}
