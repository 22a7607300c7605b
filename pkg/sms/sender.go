package sms

import "context"

// Sender delivers a single transactional text message. The SOS pipeline is
// the only caller; delivery is best effort and failures are logged, never
// surfaced to the triggering user.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
}
