package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(credentialsFile string) (*FCMProvider, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{
		client: client,
	}, nil
}

func (f *FCMProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	message := f.buildMessage(request)

	response, err := f.client.Send(ctx, message)
	if err != nil {
		return &NotificationResponse{
			Success: false,
			Error:   err.Error(),
			Token:   request.Token,
		}, err
	}

	return &NotificationResponse{
		MessageID: response,
		Success:   true,
		Token:     request.Token,
	}, nil
}

func (f *FCMProvider) SendBulkNotifications(ctx context.Context, requests []*NotificationRequest) ([]*NotificationResponse, error) {
	messages := make([]*messaging.Message, len(requests))
	for i, req := range requests {
		messages[i] = f.buildMessage(req)
	}

	batchResponse, err := f.client.SendEach(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to send bulk notifications: %w", err)
	}

	responses := make([]*NotificationResponse, len(requests))
	for i, response := range batchResponse.Responses {
		if response.Success {
			responses[i] = &NotificationResponse{
				MessageID: response.MessageID,
				Success:   true,
				Token:     requests[i].Token,
			}
		} else {
			responses[i] = &NotificationResponse{
				Success: false,
				Error:   response.Error.Error(),
				Token:   requests[i].Token,
			}
		}
	}

	return responses, nil
}

func (f *FCMProvider) buildMessage(request *NotificationRequest) *messaging.Message {
	message := &messaging.Message{
		Token: request.Token,
		Data:  request.Data,
	}

	if request.Title != "" || request.Body != "" {
		message.Notification = &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		}
	}

	if request.Priority != "" || request.Sound != "" {
		message.Android = &messaging.AndroidConfig{
			Priority: request.Priority,
			Notification: &messaging.AndroidNotification{
				Title: request.Title,
				Body:  request.Body,
				Sound: request.Sound,
			},
		}
	}

	return message
}
