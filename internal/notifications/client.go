package notifications

import (
	"encoding/json"
	"sync"
	"time"

	"harfzaar/internal/middleware"
	"harfzaar/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must stay below pongWait or idle peers time out.
	pingPeriod = (pongWait * 9) / 10

	// Chat frames are short text plus file metadata; uploads go over HTTP.
	maxMessageSize = 16 << 10
	sendBuffer     = 256
)

// EventMessagesDropped tells a slow client it missed frames and should
// reload the room history.
const EventMessagesDropped = "messages_dropped"

var dropNotice, _ = json.Marshal(Frame{Event: EventMessagesDropped, Data: json.RawMessage(`{"reason":"buffer_full"}`)})

// Owner is what a Client reports back to: the hub that registered it.
type Owner interface {
	Name() string
	HandleIncoming(c *Client, raw []byte)
	UnregisterClient(c *Client)
}

// Conn is the subset of a websocket connection the pumps use.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one open socket. A user may hold several, one per device.
type Client struct {
	ID     string
	UserID string
	Conn   Conn
	// Send is closed by the owner when the client is dropped.
	Send chan []byte

	owner     Owner
	closeOnce sync.Once
}

// NewClient wraps conn for userID.
func NewClient(owner Owner, conn Conn, userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		owner:  owner,
	}
}

// ReadPump feeds inbound frames to the owner until the peer goes away,
// then unregisters the client. It blocks; run it on the handler goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.owner.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", "hub", c.owner.Name(), "user_id", c.UserID, "error", err)
			}
			return
		}
		c.owner.HandleIncoming(c, raw)
	}
}

// WritePump drains Send to the socket and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	write := func(kind int, data []byte) bool {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.Conn.WriteMessage(kind, data) == nil
	}

	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				write(websocket.CloseMessage, nil)
				return
			}
			if !write(websocket.TextMessage, msg) {
				return
			}
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// TrySend queues msg without blocking. When the buffer is full the frame is
// dropped and a messages_dropped notice is queued if there is room.
func (c *Client) TrySend(msg []byte) {
	defer func() {
		// Send was closed by a concurrent unregister.
		if recover() != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.owner.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- msg:
		return
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.owner.Name(), "full").Inc()
	middleware.Logger.Warn("websocket buffer full, dropped message", "hub", c.owner.Name(), "user_id", c.UserID)
	select {
	case c.Send <- dropNotice:
	default:
	}
}

// close shuts Send once; WritePump then sends a close frame.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Send) })
}
