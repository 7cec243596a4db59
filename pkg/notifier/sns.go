package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the publish-only SNS surface.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NotificationError wraps a rejected publish. Logged by the caller; it never
// rolls back the already-stored report.
type NotificationError struct {
	Topic string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to publish to %q: %v", e.Topic, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// SNSPublisher delivers the run summary to a fan-out topic.
type SNSPublisher struct {
	Client   SNSAPI
	TopicARN string
}

func NewSNSPublisher(cfg aws.Config, topicARN string) *SNSPublisher {
	return &SNSPublisher{
		Client:   sns.NewFromConfig(cfg),
		TopicARN: topicARN,
	}
}

// Publish sends one message with a subject line for the email subscribers.
func (p *SNSPublisher) Publish(ctx context.Context, subject, message string) error {
	_, err := p.Client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return &NotificationError{Topic: p.TopicARN, Err: err}
	}
	return nil
}
