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

func NewFCMProvider(ctx context.Context, projectID, credentialsFile string) (*FCMProvider, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (f *FCMProvider) Send(ctx context.Context, tokens []string, msg *Message) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	batch, err := f.client.SendEachForMulticast(ctx, f.buildMessage(tokens, msg))
	if err != nil {
		return nil, fmt.Errorf("failed to send push notification: %w", err)
	}

	var invalid []string
	var lastErr error
	for i, resp := range batch.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) {
			invalid = append(invalid, tokens[i])
			continue
		}
		lastErr = resp.Error
	}

	if batch.SuccessCount == 0 && lastErr != nil {
		return invalid, fmt.Errorf("fcm delivery failed: %w", lastErr)
	}
	return invalid, nil
}

func (f *FCMProvider) buildMessage(tokens []string, msg *Message) *messaging.MulticastMessage {
	priority := "normal"
	if msg.HighPriority {
		priority = "high"
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority:    priority,
			CollapseKey: msg.CollapseKey,
			Notification: &messaging.AndroidNotification{
				ChannelID: "rides",
			},
		},
	}
}
