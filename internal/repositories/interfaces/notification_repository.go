package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/utils"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByUserID(ctx context.Context, userID string, unreadOnly bool, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	MarkAsRead(ctx context.Context, id primitive.ObjectID, userID string) error
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
}
