package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/chefbot/internal/notifications"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestPublish(t *testing.T) {
	client := &fakeSNS{}
	service := &NotificationSNSService{Sns: client, TopicArn: "arn:aws:sns:us-east-1:123456789012:favorites"}

	err := service.Publish(context.Background(), notifications.Message{
		Subject:    "Favorite saved",
		Body:       "Recipe 42 (Soup) was saved to favorites",
		Attributes: map[string]string{"action": "saved", "userId": "7"},
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:favorites", *input.TopicArn)
	assert.Equal(t, "Favorite saved", *input.Subject)
	assert.Equal(t, "Recipe 42 (Soup) was saved to favorites", *input.Message)
	assert.Equal(t, "String", *input.MessageAttributes["action"].DataType)
	assert.Equal(t, "saved", *input.MessageAttributes["action"].StringValue)
	assert.Equal(t, "7", *input.MessageAttributes["userId"].StringValue)
}

func TestPublishWithoutSubject(t *testing.T) {
	client := &fakeSNS{}
	service := &NotificationSNSService{Sns: client, TopicArn: "arn"}
	require.NoError(t, service.Publish(context.Background(), notifications.Message{Body: "hi"}))
	assert.Nil(t, client.inputs[0].Subject)
}

func TestPublishError(t *testing.T) {
	service := &NotificationSNSService{Sns: &fakeSNS{err: errors.New("throttled")}, TopicArn: "arn"}
	assert.Error(t, service.Publish(context.Background(), notifications.Message{Body: "hi"}))
}
