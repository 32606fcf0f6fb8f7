package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
	"ridepair/pkg/websocket"
)

type ChatService interface {
	SendMessage(ctx context.Context, senderID string, rideID primitive.ObjectID, text string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, actorID string, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ChatMessage, int64, error)
}

type chatService struct {
	store       interfaces.RideStore
	chatRepo    interfaces.ChatRepository
	broadcaster *RealtimeBroadcaster
	notifier    Notifier
	logger      *logger.Logger
}

func NewChatService(
	store interfaces.RideStore,
	chatRepo interfaces.ChatRepository,
	broadcaster *RealtimeBroadcaster,
	notifier Notifier,
	log *logger.Logger,
) ChatService {
	return &chatService{
		store:       store,
		chatRepo:    chatRepo,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      log,
	}
}

// SendMessage is open to the participants of a confirmed or running trip.
func (s *chatService) SendMessage(ctx context.Context, senderID string, rideID primitive.ObjectID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > utils.MaxMessageLength {
		return nil, fmt.Errorf("%w: message must be between 1 and %d characters", models.ErrValidation, utils.MaxMessageLength)
	}

	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err)
	}
	if !models.CanAccess(senderID, ride) {
		return nil, models.ErrNotAuthorized
	}

	message := &models.ChatMessage{
		ID:        primitive.NewObjectID(),
		RideID:    rideID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: utils.NowUTC(),
	}
	if err := s.chatRepo.Create(ctx, message); err != nil {
		return nil, storeError(err)
	}

	err = s.broadcaster.Broadcast(ctx, websocket.RideRoom(rideID.Hex()), websocket.Message{
		Type:      string(models.NotificationTypeChatMessage),
		UserID:    senderID,
		Timestamp: message.CreatedAt.Unix(),
		Data: map[string]interface{}{
			"id":      message.ID.Hex(),
			"ride_id": rideID.Hex(),
			"text":    message.Text,
		},
	})
	if err != nil {
		s.logger.WithError(err).WithRideID(rideID).Warn("failed to broadcast chat message")
	}

	if counterpart, ok := ride.Counterpart(senderID); ok {
		s.notifier.Notify(ctx, models.NewNotification(counterpart, rideID, models.NotificationTypeChatMessage,
			"New message", utils.TruncateString(text, 120)))
	}
	return message, nil
}

// ListMessages keeps the history readable to participants after the trip ends.
func (s *chatService) ListMessages(ctx context.Context, actorID string, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ChatMessage, int64, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, 0, storeError(err)
	}
	if !ride.IsParticipant(actorID) {
		return nil, 0, models.ErrNotAuthorized
	}

	messages, total, err := s.chatRepo.GetByRideID(ctx, rideID, params)
	if err != nil {
		return nil, 0, storeError(err)
	}
	return messages, total, nil
}
