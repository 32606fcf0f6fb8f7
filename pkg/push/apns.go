package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

// Send pushes to each token in turn; APNs has no multicast endpoint.
func (a *APNSProvider) Send(ctx context.Context, tokens []string, msg *Message) ([]string, error) {
	var invalid []string
	var lastErr error
	sent := 0

	for _, deviceToken := range tokens {
		resp, err := a.client.PushWithContext(ctx, a.buildNotification(deviceToken, msg))
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Sent() {
			sent++
			continue
		}
		switch resp.Reason {
		case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
			invalid = append(invalid, deviceToken)
		default:
			lastErr = fmt.Errorf("APNS error: %s", resp.Reason)
		}
	}

	if sent == 0 && lastErr != nil {
		return invalid, lastErr
	}
	return invalid, nil
}

func (a *APNSProvider) buildNotification(deviceToken string, msg *Message) *apns2.Notification {
	p := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
	for k, v := range msg.Data {
		p.Custom(k, v)
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.topic,
		Payload:     p,
		CollapseID:  msg.CollapseKey,
		Priority:    apns2.PriorityLow,
	}
	if msg.HighPriority {
		notification.Priority = apns2.PriorityHigh
	}
	return notification
}
