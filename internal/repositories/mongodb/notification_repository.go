package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/database"
)

// CacheService is the slice of the cache the repositories rely on.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const unreadCountTTL = 5 * time.Minute

type notificationRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewNotificationRepository(db *mongo.Database, cache CacheService) interfaces.NotificationRepository {
	return &notificationRepository{
		collection: db.Collection(database.NotificationsCollection),
		cache:      cache,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	r.invalidateUnreadCountCache(ctx, notification.UserID)
	return nil
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID string, unreadOnly bool, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["is_read"] = false
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.FindOptions("created_at", false))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id primitive.ObjectID, userID string) error {
	now := time.Now()
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotificationMissing
	}

	r.invalidateUnreadCountCache(ctx, userID)
	return nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	cacheKey := r.unreadCountKey(userID)
	if r.cache != nil {
		var count int64
		if err := r.cache.Get(ctx, cacheKey, &count); err == nil {
			return count, nil
		}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if r.cache != nil {
		r.cache.Set(ctx, cacheKey, count, unreadCountTTL)
	}
	return count, nil
}

func (r *notificationRepository) unreadCountKey(userID string) string {
	return "notifications:unread:" + userID
}

func (r *notificationRepository) invalidateUnreadCountCache(ctx context.Context, userID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, r.unreadCountKey(userID))
	}
}
