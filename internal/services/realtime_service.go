package services

import (
	"context"
	"encoding/json"
	"strings"

	"ridepair/internal/utils"
	"ridepair/pkg/logger"
	"ridepair/pkg/websocket"
)

// RealtimeBroadcaster routes websocket room events through the cache pub/sub
// so that every API instance reaches its own connected clients.
type RealtimeBroadcaster struct {
	cache  CacheService
	logger *logger.Logger
}

func NewRealtimeBroadcaster(cache CacheService, log *logger.Logger) *RealtimeBroadcaster {
	return &RealtimeBroadcaster{cache: cache, logger: log}
}

func (b *RealtimeBroadcaster) Broadcast(ctx context.Context, roomID string, msg websocket.Message) error {
	return b.cache.Publish(ctx, utils.CacheRideChannelPrefix+roomID, msg)
}

// Relay forwards published room events to the local hub until ctx ends.
func (b *RealtimeBroadcaster) Relay(ctx context.Context, hub *websocket.Hub) error {
	return b.cache.Subscribe(ctx, utils.CacheRideChannelPrefix+"*", func(channel string, payload []byte) {
		var msg websocket.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.WithError(err).WithField("channel", channel).Warn("dropping malformed realtime event")
			return
		}
		hub.BroadcastToRoom(strings.TrimPrefix(channel, utils.CacheRideChannelPrefix), msg)
	})
}
