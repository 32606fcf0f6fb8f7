package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"ridepair/pkg/logger"
	"ridepair/pkg/metrics"
)

const (
	userRoomPrefix = "user_"
	rideRoomPrefix = "ride_"
)

// RoomAuthorizer decides whether a user may join a shared room. Personal rooms
// never go through it.
type RoomAuthorizer func(ctx context.Context, userID, roomID string) bool

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
	authorize  RoomAuthorizer
	logger     *logger.Logger
	done       chan struct{}
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func UserRoom(userID string) string { return userRoomPrefix + userID }
func RideRoom(rideID string) string { return rideRoomPrefix + rideID }

// RideIDFromRoom extracts the ride id from a ride_<id> room name.
func RideIDFromRoom(roomID string) (string, bool) {
	if !strings.HasPrefix(roomID, rideRoomPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(roomID, rideRoomPrefix)
	return id, id != ""
}

func NewHub(authorize RoomAuthorizer, log *logger.Logger) *Hub {
	if authorize == nil {
		authorize = func(context.Context, string, string) bool { return false }
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		authorize:  authorize,
		logger:     log,
		done:       make(chan struct{}),
	}
}

// Run serves registrations until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			h.mutex.Lock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mutex.Unlock()
			for _, c := range clients {
				h.removeClient(c)
			}
			return
		}
	}
}

// Register hands client to the running hub. It reports false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.joinRoom(client, UserRoom(client.UserID))
	h.mutex.Unlock()

	metrics.WebSocketConnections.Inc()
	h.logger.WithUserID(client.UserID).Debug("websocket client registered")

	h.sendToClient(client, Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: now(),
		Data: map[string]interface{}{
			"room_id": UserRoom(client.UserID),
		},
	})
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID := range client.rooms {
		if room, exists := h.rooms[roomID]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	metrics.WebSocketConnections.Dec()
	h.logger.WithUserID(client.UserID).Debug("websocket client unregistered")
}

// BroadcastToRoom delivers msg to every client in roomID. Clients whose send
// buffer is full are disconnected.
func (h *Hub) BroadcastToRoom(roomID string, msg Message) {
	msg.RoomID = roomID
	if msg.Timestamp == 0 {
		msg.Timestamp = now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Warn("failed to encode websocket message")
		return
	}

	var slow []*Client
	h.mutex.RLock()
	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		h.removeClient(client)
	}
}

func (h *Hub) SendToUser(userID string, msg Message) {
	h.BroadcastToRoom(UserRoom(userID), msg)
}

func (h *Hub) sendToClient(client *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mutex.RLock()
	_, alive := h.clients[client]
	delivered := false
	if alive {
		select {
		case client.send <- data:
			delivered = true
		default:
		}
	}
	h.mutex.RUnlock()

	if alive && !delivered {
		h.removeClient(client)
	}
}

// JoinRoom adds client to roomID if the authorizer allows it.
func (h *Hub) JoinRoom(ctx context.Context, client *Client, roomID string) bool {
	if roomID != UserRoom(client.UserID) && !h.authorize(ctx, client.UserID, roomID) {
		return false
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	h.joinRoom(client, roomID)
	return true
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomSize reports how many clients are in roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

func now() int64 {
	return time.Now().Unix()
}
