package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type AWSSNSSender struct {
	client *sns.Client
	region string
}

func NewAWSSNSSender(region string) (*AWSSNSSender, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSNSSender{
		client: sns.NewFromConfig(cfg),
		region: region,
	}, nil
}

func (a *AWSSNSSender) SendSMS(ctx context.Context, to, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}

	if _, err := a.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish to %s: %w", to, err)
	}
	return nil
}
