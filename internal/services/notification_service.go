package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
	"ridepair/pkg/metrics"
)

// Notifier accepts notifications produced by a committed state change. It
// never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, notifications ...*models.Notification)
}

// NotificationSink is one delivery channel of the outbox.
type NotificationSink interface {
	Name() string
	Deliver(ctx context.Context, notification *models.Notification) error
}

type NotificationService interface {
	Notifier

	// Run drains the outbox until ctx is cancelled, then flushes what is left.
	Run(ctx context.Context)

	ListNotifications(ctx context.Context, userID string, unreadOnly bool, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	MarkAsRead(ctx context.Context, userID string, id primitive.ObjectID) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	queue          chan *models.Notification
	sinks          []NotificationSink
	repo           interfaces.NotificationRepository
	deliverTimeout time.Duration
	logger         *logger.Logger
}

// NewNotificationService builds the outbox. Sinks run in the given order for
// every notification, so the repository sink should come first to assign ids.
func NewNotificationService(
	repo interfaces.NotificationRepository,
	bufferSize int,
	deliverTimeout time.Duration,
	log *logger.Logger,
	sinks ...NotificationSink,
) NotificationService {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if deliverTimeout <= 0 {
		deliverTimeout = 10 * time.Second
	}
	return &notificationService{
		queue:          make(chan *models.Notification, bufferSize),
		sinks:          sinks,
		repo:           repo,
		deliverTimeout: deliverTimeout,
		logger:         log,
	}
}

func (s *notificationService) Notify(ctx context.Context, notifications ...*models.Notification) {
	for _, n := range notifications {
		if n == nil || n.UserID == "" {
			continue
		}
		c := *n
		select {
		case s.queue <- &c:
			metrics.NotificationsQueued.Inc()
		default:
			metrics.NotificationsDropped.Inc()
			s.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"user_id": n.UserID,
				"type":    n.Type,
			}).Warn("notification outbox full, dropping notification")
		}
	}
}

func (s *notificationService) Run(ctx context.Context) {
	for {
		select {
		case n := <-s.queue:
			s.deliver(ctx, n)
		case <-ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *notificationService) flush() {
	for {
		select {
		case n := <-s.queue:
			s.deliver(context.Background(), n)
		default:
			return
		}
	}
}

func (s *notificationService) deliver(ctx context.Context, n *models.Notification) {
	for _, sink := range s.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, s.deliverTimeout)
		err := sink.Deliver(sinkCtx, n)
		cancel()

		metrics.NotificationDeliveries.WithLabelValues(sink.Name(), metrics.Result(err)).Inc()
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"sink":    sink.Name(),
				"user_id": n.UserID,
				"ride_id": n.RideID.Hex(),
				"type":    n.Type,
			}).Warn("notification delivery failed")
		}
	}
}

func (s *notificationService) ListNotifications(ctx context.Context, userID string, unreadOnly bool, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	notifications, total, err := s.repo.GetByUserID(ctx, userID, unreadOnly, params)
	if err != nil {
		return nil, 0, storeError(err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID string, id primitive.ObjectID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		return storeError(err)
	}
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}
