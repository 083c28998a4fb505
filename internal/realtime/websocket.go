package realtime

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 256
)

// Conn is the subset of *websocket.Conn the pumps need.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte

	conn  Conn
	hub   *Hub
	rooms map[string]struct{}
	done  chan struct{}
}

func NewClient(userID uuid.UUID, conn Conn) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		conn:   conn,
		done:   make(chan struct{}),
	}
}

// Done is closed once WritePump has stopped touching the connection.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Emit queues ev for this client only. It reports false when the buffer is
// full or the client is no longer registered.
func (c *Client) Emit(ev Event) bool {
	if c.hub == nil {
		return false
	}
	payload, err := encode(ev)
	if err != nil {
		return false
	}
	return c.hub.sendToClient(c, payload)
}

// ReadPump decodes client frames and hands them to handle until the
// connection fails.
func (c *Client) ReadPump(handle func(*Client, Inbound)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.Emit(Event{Event: EventError, Data: map[string]string{"message": "malformed frame"}})
			continue
		}
		handle(c, in)
	}
}

// WritePump is the only writer on the connection. It returns once Send is
// closed by the hub or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
