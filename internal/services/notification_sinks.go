package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
	"ridepair/pkg/push"
	"ridepair/pkg/queue"
	"ridepair/pkg/websocket"
)

// RepositorySink stores notifications for the in-app inbox.
type RepositorySink struct {
	repo interfaces.NotificationRepository
}

func NewRepositorySink(repo interfaces.NotificationRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Name() string { return "repository" }

func (s *RepositorySink) Deliver(ctx context.Context, n *models.Notification) error {
	return s.repo.Create(ctx, n)
}

// QueueSink streams notifications to a broker for downstream consumers.
type QueueSink struct {
	publisher queue.Publisher
}

func NewQueueSink(publisher queue.Publisher) *QueueSink {
	return &QueueSink{publisher: publisher}
}

func (s *QueueSink) Name() string { return "queue" }

func (s *QueueSink) Deliver(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, queue.Message{
		Key:        n.RideID.Hex(),
		RoutingKey: "ride." + string(n.Type),
		Body:       body,
	})
}

// RealtimeSink pushes notifications to the user's personal websocket room.
type RealtimeSink struct {
	broadcaster *RealtimeBroadcaster
}

func NewRealtimeSink(broadcaster *RealtimeBroadcaster) *RealtimeSink {
	return &RealtimeSink{broadcaster: broadcaster}
}

func (s *RealtimeSink) Name() string { return "realtime" }

func (s *RealtimeSink) Deliver(ctx context.Context, n *models.Notification) error {
	return s.broadcaster.Broadcast(ctx, websocket.UserRoom(n.UserID), websocket.Message{
		Type:      string(n.Type),
		UserID:    n.UserID,
		Timestamp: n.CreatedAt.Unix(),
		Data: map[string]interface{}{
			"notification_id": n.ID.Hex(),
			"ride_id":         n.RideID.Hex(),
			"title":           n.Title,
			"message":         n.Message,
		},
	})
}

// PushSink delivers to the device tokens a user registered. Tokens the
// provider reports as invalid are forgotten.
type PushSink struct {
	cache     CacheService
	providers map[string]push.Provider
	logger    *logger.Logger
}

func NewPushSink(cache CacheService, providers map[string]push.Provider, log *logger.Logger) *PushSink {
	return &PushSink{cache: cache, providers: providers, logger: log}
}

func (s *PushSink) Name() string { return "push" }

func (s *PushSink) Deliver(ctx context.Context, n *models.Notification) error {
	msg := &push.Message{
		Title: n.Title,
		Body:  n.Message,
		Data: map[string]string{
			"type":    string(n.Type),
			"ride_id": n.RideID.Hex(),
		},
		CollapseKey:  n.RideID.Hex(),
		HighPriority: n.Type == models.NotificationTypeEmergency,
	}

	var errs []error
	for platform, provider := range s.providers {
		key := deviceTokenKey(platform, n.UserID)
		tokens, err := s.cache.SMembers(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s tokens: %w", platform, err))
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		invalid, err := provider.Send(ctx, tokens, msg)
		if len(invalid) > 0 {
			members := make([]interface{}, len(invalid))
			for i, t := range invalid {
				members[i] = t
			}
			if remErr := s.cache.SRem(ctx, key, members...); remErr != nil {
				s.logger.WithError(remErr).Warn("failed to forget invalid push tokens")
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", platform, err))
		}
	}
	return errors.Join(errs...)
}

func deviceTokenKey(platform, userID string) string {
	return utils.CacheDeviceTokenPrefix + platform + ":" + userID
}

// SinkFunc adapts a function to NotificationSink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, n *models.Notification) error
}

func (f SinkFunc) Name() string { return f.SinkName }

func (f SinkFunc) Deliver(ctx context.Context, n *models.Notification) error {
	return f.Fn(ctx, n)
}

