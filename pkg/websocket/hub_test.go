package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridepair/pkg/logger"
)

func setupHub(t *testing.T, authorize RoomAuthorizer) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(authorize, logger.NewNop())
	go hub.Run(ctx)

	handler := NewHandler(ctx, hub, Options{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		AllowedOrigins:  []string{"*"},
	})

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", c.Query("user"))
		handler.HandleWebSocket(c)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if msg := readMessage(t, conn); msg.Type != "welcome" {
		t.Fatalf("expected welcome, got %q", msg.Type)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSendToUserReachesPersonalRoom(t *testing.T) {
	hub, srv := setupHub(t, nil)
	conn := dial(t, srv, "alice")

	hub.SendToUser("alice", Message{Type: "ride_accepted", Data: map[string]interface{}{"ride_id": "r1"}})

	msg := readMessage(t, conn)
	if msg.Type != "ride_accepted" || msg.RoomID != UserRoom("alice") {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestJoinRideRoomRequiresAuthorization(t *testing.T) {
	authorize := func(_ context.Context, userID, roomID string) bool {
		return userID == "alice" && roomID == RideRoom("r1")
	}
	hub, srv := setupHub(t, authorize)
	alice := dial(t, srv, "alice")
	mallory := dial(t, srv, "mallory")

	send(t, alice, Message{Type: "join_room", Data: map[string]interface{}{"room_id": RideRoom("r1")}})
	if msg := readMessage(t, alice); msg.Type != "room_joined" {
		t.Fatalf("expected room_joined, got %+v", msg)
	}

	send(t, mallory, Message{Type: "join_room", Data: map[string]interface{}{"room_id": RideRoom("r1")}})
	if msg := readMessage(t, mallory); msg.Type != "error" {
		t.Fatalf("expected error, got %+v", msg)
	}

	if got := hub.RoomSize(RideRoom("r1")); got != 1 {
		t.Fatalf("room size = %d, want 1", got)
	}

	hub.BroadcastToRoom(RideRoom("r1"), Message{Type: "chat_message"})
	if msg := readMessage(t, alice); msg.Type != "chat_message" {
		t.Fatalf("expected chat_message, got %+v", msg)
	}
}

func TestHandleWebSocketRejectsAnonymous(t *testing.T) {
	_, srv := setupHub(t, nil)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRideIDFromRoom(t *testing.T) {
	if id, ok := RideIDFromRoom("ride_abc"); !ok || id != "abc" {
		t.Fatalf("got %q %v", id, ok)
	}
	if _, ok := RideIDFromRoom("user_abc"); ok {
		t.Fatal("user room parsed as ride room")
	}
	if _, ok := RideIDFromRoom("ride_"); ok {
		t.Fatal("empty ride id accepted")
	}
}
