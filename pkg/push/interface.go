package push

import "context"

// Provider delivers mobile push notifications. Implementations exist for FCM
// (android) and APNS (ios); the notification service picks per device token.
type Provider interface {
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
	SendBulkNotifications(ctx context.Context, requests []*NotificationRequest) ([]*NotificationResponse, error)
}

type NotificationRequest struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    int               `json:"badge,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
}
