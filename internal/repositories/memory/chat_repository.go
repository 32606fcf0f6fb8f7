package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/utils"
)

type ChatRepository struct {
	mu       sync.RWMutex
	messages map[primitive.ObjectID][]*models.ChatMessage
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		messages: make(map[primitive.ObjectID][]*models.ChatMessage),
	}
}

func (r *ChatRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	c := *message
	r.messages[c.RideID] = append(r.messages[c.RideID], &c)
	return nil
}

func (r *ChatRepository) GetByRideID(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ChatMessage, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.messages[rideID]
	start, end := 0, len(all)
	if params != nil {
		start, end = params.Window(len(all))
	}

	out := make([]*models.ChatMessage, 0, end-start)
	for _, m := range all[start:end] {
		c := *m
		out = append(out, &c)
	}
	return out, int64(len(all)), nil
}
