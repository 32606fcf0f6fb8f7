package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID string
	rooms  map[string]bool
	opts   Options
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, opts Options) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: userID,
		rooms:  make(map[string]bool),
		opts:   opts,
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).WithUserID(c.UserID).Warn("websocket read failed")
			}
			break
		}

		c.handleMessage(ctx, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Clients only manage their room membership; everything else they receive is
// pushed by the server.
func (c *Client) handleMessage(ctx context.Context, message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply("error", "", map[string]interface{}{"message": "malformed message"})
		return
	}

	roomID, _ := msg.Data["room_id"].(string)

	switch msg.Type {
	case "join_room":
		if !c.hub.JoinRoom(ctx, c, roomID) {
			c.reply("error", roomID, map[string]interface{}{"message": "not allowed to join room"})
			return
		}
		c.reply("room_joined", roomID, nil)

	case "leave_room":
		c.hub.LeaveRoom(c, roomID)
		c.reply("room_left", roomID, nil)

	case "ping":
		c.reply("pong", "", nil)

	default:
		c.reply("error", "", map[string]interface{}{"message": "unsupported message type"})
	}
}

func (c *Client) reply(msgType, roomID string, data map[string]interface{}) {
	c.hub.sendToClient(c, Message{
		Type:      msgType,
		RoomID:    roomID,
		UserID:    c.UserID,
		Timestamp: now(),
		Data:      data,
	})
}
