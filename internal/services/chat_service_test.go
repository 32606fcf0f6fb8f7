package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"ridepair/internal/models"
	"ridepair/internal/repositories/memory"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
)

func setupChat(t *testing.T) (*rideFixture, ChatService) {
	t.Helper()
	f := setupRideService(t)
	broadcaster := NewRealtimeBroadcaster(f.cache, logger.NewNop())
	return f, NewChatService(f.store, memory.NewChatRepository(), broadcaster, f.notifier, logger.NewNop())
}

func TestChatService_SendAndList(t *testing.T) {
	f, chat := setupChat(t)
	ctx := context.Background()
	ride, _ := f.confirmed(t)
	f.notifier.reset()

	msg, err := chat.SendMessage(ctx, "passenger-1", ride.ID, "  I'm at the north gate  ")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.Text != "I'm at the north gate" || msg.SenderID != "passenger-1" {
		t.Errorf("Unexpected message %+v", msg)
	}
	if got := f.notifier.byType(models.NotificationTypeChatMessage); !reflect.DeepEqual(got, []string{"driver-1"}) {
		t.Errorf("Chat notification went to %v", got)
	}

	chat.SendMessage(ctx, "driver-1", ride.ID, "On my way")
	messages, total, err := chat.ListMessages(ctx, "driver-1", ride.ID, nil)
	if err != nil || total != 2 || len(messages) != 2 {
		t.Fatalf("ListMessages returned %d/%d, %v", len(messages), total, err)
	}
}

func TestChatService_RequiresAccess(t *testing.T) {
	f, chat := setupChat(t)
	ctx := context.Background()

	offer := f.offer(t, "driver-1")
	if _, err := chat.SendMessage(ctx, "driver-1", offer.ID, "hello?"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized on an unmatched ride, got %v", err)
	}

	ride, _ := f.confirmed(t)
	if _, err := chat.SendMessage(ctx, "outsider", ride.ID, "hi"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized for an outsider, got %v", err)
	}
	if _, _, err := chat.ListMessages(ctx, "outsider", ride.ID, nil); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized listing as outsider, got %v", err)
	}

	if _, err := chat.SendMessage(ctx, "driver-1", ride.ID, "   "); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for an empty message, got %v", err)
	}
	long := strings.Repeat("a", utils.MaxMessageLength+1)
	if _, err := chat.SendMessage(ctx, "driver-1", ride.ID, long); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for a long message, got %v", err)
	}
}
