package services

import (
	"context"
	"strings"
	"time"

	"campusride/internal/models"
	"campusride/internal/repositories/interfaces"
	"campusride/internal/utils"
	"campusride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageService serves the per-ride event log: participant chat plus the
// system records appended by the lifecycle services. Chat is open to
// participants until the ride reaches a terminal state.
type MessageService struct {
	rides    interfaces.RideRepository
	messages interfaces.MessageRepository
	tx       interfaces.TxRunner
	events   EventPublisher
	logger   *logger.Logger
	now      func() time.Time
}

func NewMessageService(
	rides interfaces.RideRepository,
	messages interfaces.MessageRepository,
	tx interfaces.TxRunner,
	events EventPublisher,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		rides:    rides,
		messages: messages,
		tx:       tx,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// SendChat appends a chat message authored by a ride participant.
func (s *MessageService) SendChat(ctx context.Context, rideID, senderID primitive.ObjectID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.ErrEmptyMessage
	}

	var (
		msg      *models.Message
		snapshot *models.Ride
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if !ride.Involves(senderID) {
			return models.ErrNotAuthorized
		}
		if ride.IsTerminal() {
			return models.ErrRideEnded
		}

		m := &models.Message{
			RideID:    rideID,
			SenderID:  &senderID,
			Type:      models.MessageTypeChat,
			Body:      body,
			ReadBy:    []primitive.ObjectID{senderID},
			Timestamp: s.now(),
		}
		if err := s.messages.Append(ctx, m); err != nil {
			return err
		}
		msg, snapshot = m, ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	evt := newRideEvent(RideEventChat, snapshot, senderID)
	evt.Message = msg
	s.events.PublishRideEvent(ctx, evt)
	return msg, nil
}

// ListByRide returns the ride's message log in append order, for participants.
func (s *MessageService) ListByRide(ctx context.Context, rideID, viewerID primitive.ObjectID) ([]*models.Message, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.Involves(viewerID) {
		return nil, models.ErrNotAuthorized
	}
	return s.messages.ListByRide(ctx, rideID, utils.MessageListLimit)
}

// MarkRead records a read receipt. Re-reading is idempotent.
func (s *MessageService) MarkRead(ctx context.Context, messageID, userID primitive.ObjectID) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	ride, err := s.rides.GetByID(ctx, msg.RideID)
	if err != nil {
		return err
	}
	if !ride.Involves(userID) {
		return models.ErrNotAuthorized
	}
	return s.messages.MarkRead(ctx, messageID, userID)
}
