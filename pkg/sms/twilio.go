package sms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	if resp.Status != nil && *resp.Status == "failed" {
		return fmt.Errorf("twilio send to %s: status failed", to)
	}
	return nil
}
