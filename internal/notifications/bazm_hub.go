package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"harfzaar/internal/middleware"
	"harfzaar/internal/observability"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// Socket events.
const (
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventTyping         = "typing"
	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
	EventJoined         = "joined_room"
	EventError          = "error"
)

var (
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrRoomForbidden   = errors.New("not a member of this room")
	ErrNotJoined       = errors.New("join the room first")
)

// Frame is the wire shape of every socket message, both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomAuthorizer reports whether userID may join roomID.
type RoomAuthorizer func(roomID, userID string) bool

// BazmHub manages Bazm sockets grouped by room. Events are fanned out through
// Redis when available so clients on different instances share rooms.
type BazmHub struct {
	mu sync.RWMutex

	// roomID -> clients that joined it
	rooms map[string]map[*Client]struct{}
	// client -> rooms it joined
	joined map[*Client]map[string]struct{}
	// userID -> open clients (multi-device)
	userConns  map[string]map[*Client]struct{}
	totalConns int

	notifier *Notifier
	// wired is set while the Redis room subscription is live; until then
	// events are delivered locally even when publishing would succeed.
	wired     atomic.Bool
	presence  *ConnectionManager
	authorize RoomAuthorizer
	log       *observability.WSLogger
}

// NewBazmHub creates a hub. notifier and presence may be nil.
func NewBazmHub(notifier *Notifier, presence *ConnectionManager) *BazmHub {
	return &BazmHub{
		rooms:     make(map[string]map[*Client]struct{}),
		joined:    make(map[*Client]map[string]struct{}),
		userConns: make(map[string]map[*Client]struct{}),
		notifier:  notifier,
		presence:  presence,
		authorize: IsRoomParticipant,
		log:       observability.NewWSLogger("bazm"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *BazmHub) Name() string { return "bazm hub" }

// SetAuthorizer replaces the default room membership check.
func (h *BazmHub) SetAuthorizer(fn RoomAuthorizer) {
	h.mu.Lock()
	h.authorize = fn
	h.mu.Unlock()
}

// IsRoomParticipant checks userID against the ids encoded in a room id of the
// form room_<a>_<b>.
func IsRoomParticipant(roomID, userID string) bool {
	rest, ok := strings.CutPrefix(roomID, "room_")
	if !ok || userID == "" {
		return false
	}
	for _, id := range strings.Split(rest, "_") {
		if id == userID {
			return true
		}
	}
	return false
}

// Register creates a client for conn. It fails when connection limits are hit.
func (h *BazmHub) Register(userID string, conn Conn) (*Client, error) {
	h.mu.Lock()
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerConnLimit
	}
	conns := h.userConns[userID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.userConns[userID] = conns
	}
	if len(conns) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserConnLimit
	}

	client := NewClient(h, conn, userID)
	conns[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), userID)
	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}
	return client, nil
}

// UnregisterClient removes the client from every room and closes its send channel.
func (h *BazmHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	conns, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := conns[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.userConns, client.UserID)
	}
	h.totalConns--

	for roomID := range h.joined[client] {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.joined, client)
	h.mu.Unlock()

	client.close()
	observability.WebSocketConnectionsTotal.Dec()
	h.log.LogDisconnect(context.Background(), client.UserID, "closed")
	if h.presence != nil {
		h.presence.Unregister(context.Background(), client.UserID)
	}
}

// Join subscribes client to roomID.
func (h *BazmHub) Join(client *Client, roomID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.authorize != nil && !h.authorize(roomID, client.UserID) {
		return ErrRoomForbidden
	}
	if _, ok := h.userConns[client.UserID][client]; !ok {
		return errors.New("client is not registered")
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	if h.joined[client] == nil {
		h.joined[client] = make(map[string]struct{})
	}
	h.joined[client][roomID] = struct{}{}
	return nil
}

func (h *BazmHub) inRoom(client *Client, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.joined[client][roomID]
	return ok
}

// RoomSize returns the number of local clients in roomID.
func (h *BazmHub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// IsUserConnected reports whether userID has a socket on this instance.
func (h *BazmHub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

type messageEvent struct {
	Room string `json:"room"`
}

// HandleIncoming dispatches one frame read from client.
func (h *BazmHub) HandleIncoming(client *Client, raw []byte) {
	ctx := context.Background()

	var in Frame
	if err := json.Unmarshal(raw, &in); err != nil {
		h.replyError(client, "Invalid message format")
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(in.Event).Inc()

	switch in.Event {
	case EventJoinRoom:
		var roomID string
		if err := json.Unmarshal(in.Data, &roomID); err != nil || roomID == "" {
			h.replyError(client, "Room id is required")
			return
		}
		if err := h.Join(client, roomID); err != nil {
			h.log.LogError(ctx, client.UserID, roomID, err, in.Event)
			h.replyError(client, err.Error())
			return
		}
		h.log.LogMessage(ctx, client.UserID, roomID, in.Event)
		h.reply(client, EventJoined, roomID)

	case EventSendMessage:
		h.relay(ctx, client, in, EventReceiveMessage, map[string]any{"sender": client.UserID, "unread": true})

	case EventTyping:
		h.relay(ctx, client, in, EventUserTyping, map[string]any{"user": client.UserID})

	default:
		h.replyError(client, "Unknown event")
	}
}

// relay forwards the sender's payload to the rest of the room. Fields in
// overrides replace what the client sent, so identities cannot be spoofed.
func (h *BazmHub) relay(ctx context.Context, client *Client, in Frame, out string, overrides map[string]any) {
	var head messageEvent
	var body map[string]any
	if err := json.Unmarshal(in.Data, &head); err != nil || head.Room == "" {
		h.replyError(client, "Room id is required")
		return
	}
	if err := json.Unmarshal(in.Data, &body); err != nil || body == nil {
		body = map[string]any{"room": head.Room}
	}
	if !h.inRoom(client, head.Room) {
		h.replyError(client, ErrNotJoined.Error())
		return
	}
	for k, v := range overrides {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		h.log.LogError(ctx, client.UserID, head.Room, err, in.Event)
		return
	}

	h.log.LogMessage(ctx, client.UserID, head.Room, in.Event)
	h.emit(ctx, RoomEvent{Room: head.Room, Event: out, Data: data, Origin: client.ID})
}

// PublishRoom sends event to every client in roomID on every instance.
func (h *BazmHub) PublishRoom(ctx context.Context, roomID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.emit(ctx, RoomEvent{Room: roomID, Event: event, Data: data})
	return nil
}

func (h *BazmHub) emit(ctx context.Context, ev RoomEvent) {
	if h.notifier.Enabled() && h.wired.Load() {
		err := h.notifier.PublishRoom(ctx, ev)
		if err == nil {
			return
		}
		observability.RedisErrorRate.WithLabelValues("publish").Inc()
		h.log.LogError(ctx, "", ev.Room, err, ev.Event)
	}
	// No Redis, or publish failed: this instance is all we can reach.
	h.Deliver(ev)
}

// Deliver writes ev to local clients in its room, skipping the originating client.
func (h *BazmHub) Deliver(ev RoomEvent) {
	msg, err := json.Marshal(Frame{Event: ev.Event, Data: ev.Data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[ev.Room] {
		if client.ID == ev.Origin {
			continue
		}
		client.TrySend(msg)
	}
}

// Wired reports whether room events currently fan out through Redis.
func (h *BazmHub) Wired() bool { return h.wired.Load() }

// StartWiring delivers room events received from Redis. Until it succeeds,
// and again once ctx ends, emitted events only reach local clients.
func (h *BazmHub) StartWiring(ctx context.Context) error {
	err := h.notifier.StartRoomSubscriber(ctx, func(channel, payload string) {
		roomID, ok := RoomFromChannel(channel)
		if !ok {
			middleware.Logger.Warn("bazm: invalid channel", "channel", channel)
			return
		}
		var ev RoomEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			middleware.Logger.Warn("bazm: invalid room event", "channel", channel, "error", err)
			return
		}
		ev.Room = roomID
		h.Deliver(ev)
	})
	if err != nil || !h.notifier.Enabled() {
		return err
	}
	h.wired.Store(true)
	context.AfterFunc(ctx, func() { h.wired.Store(false) })
	return nil
}

func (h *BazmHub) reply(client *Client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if msg, err := json.Marshal(Frame{Event: event, Data: data}); err == nil {
		client.TrySend(msg)
	}
}

func (h *BazmHub) replyError(client *Client, message string) {
	h.reply(client, EventError, map[string]string{"message": message})
}

// Shutdown notifies and closes every client.
func (h *BazmHub) Shutdown(_ context.Context) error {
	notice, _ := json.Marshal(Frame{Event: "server_shutdown", Data: json.RawMessage(`{"message":"Server is shutting down"}`)})

	h.mu.Lock()
	for _, conns := range h.userConns {
		for client := range conns {
			client.TrySend(notice)
			client.close()
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.joined = make(map[*Client]map[string]struct{})
	h.userConns = make(map[string]map[*Client]struct{})
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	h.totalConns = 0
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.Stop()
	}
	return nil
}
