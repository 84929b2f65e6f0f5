package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{}

func (fakeConn) SetReadLimit(int64)                {}
func (fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (fakeConn) SetPongHandler(func(string) error) {}
func (fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, context.Canceled }
func (fakeConn) WriteMessage(int, []byte) error    { return nil }
func (fakeConn) Close() error                      { return nil }

const (
	alice = "64b7f0a1c2d3e4f5a6b7c8d9"
	bob   = "64b7f0a1c2d3e4f5a6b7c8da"
	room  = "room_" + alice + "_" + bob
)

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(Frame{Event: event, Data: raw})
	require.NoError(t, err)
	return out
}

func next(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case msg := <-c.Send:
		var f Frame
		require.NoError(t, json.Unmarshal(msg, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return Frame{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected frame: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func joinedPair(t *testing.T, hub *BazmHub) (*Client, *Client) {
	t.Helper()
	a, err := hub.Register(alice, fakeConn{})
	require.NoError(t, err)
	b, err := hub.Register(bob, fakeConn{})
	require.NoError(t, err)

	hub.HandleIncoming(a, frame(t, EventJoinRoom, room))
	hub.HandleIncoming(b, frame(t, EventJoinRoom, room))
	assert.Equal(t, EventJoined, next(t, a).Event)
	assert.Equal(t, EventJoined, next(t, b).Event)
	return a, b
}

func TestIsRoomParticipant(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRoomParticipant(room, alice))
	assert.True(t, IsRoomParticipant(room, bob))
	assert.False(t, IsRoomParticipant(room, "64b7f0a1c2d3e4f5a6b7c8db"))
	assert.False(t, IsRoomParticipant(alice+"_"+bob, alice))
	assert.False(t, IsRoomParticipant(room, ""))
}

func TestBazmHub_SendMessageReachesOthersOnly(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, b := joinedPair(t, hub)

	hub.HandleIncoming(a, frame(t, EventSendMessage, map[string]any{
		"room":       room,
		"sender":     "spoofed",
		"senderName": "Alice",
		"content":    "dil-e-nadaan",
	}))

	got := next(t, b)
	assert.Equal(t, EventReceiveMessage, got.Event)
	var data map[string]any
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, alice, data["sender"])
	assert.Equal(t, "dil-e-nadaan", data["content"])
	assert.Equal(t, true, data["unread"])

	assertSilent(t, a)
}

func TestBazmHub_Typing(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, b := joinedPair(t, hub)

	hub.HandleIncoming(b, frame(t, EventTyping, map[string]any{"room": room, "isTyping": true}))

	got := next(t, a)
	assert.Equal(t, EventUserTyping, got.Event)
	var data map[string]any
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, bob, data["user"])
	assert.Equal(t, true, data["isTyping"])
	assertSilent(t, b)
}

func TestBazmHub_JoinRejectsOutsiders(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	eve, err := hub.Register("64b7f0a1c2d3e4f5a6b7c8db", fakeConn{})
	require.NoError(t, err)

	hub.HandleIncoming(eve, frame(t, EventJoinRoom, room))
	got := next(t, eve)
	assert.Equal(t, EventError, got.Event)
	assert.Equal(t, 0, hub.RoomSize(room))
}

func TestBazmHub_SendRequiresJoin(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, err := hub.Register(alice, fakeConn{})
	require.NoError(t, err)

	hub.HandleIncoming(a, frame(t, EventSendMessage, map[string]any{"room": room, "content": "x"}))
	got := next(t, a)
	assert.Equal(t, EventError, got.Event)
	assert.Contains(t, string(got.Data), ErrNotJoined.Error())
}

func TestBazmHub_BadFrames(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, err := hub.Register(alice, fakeConn{})
	require.NoError(t, err)

	hub.HandleIncoming(a, []byte("not json"))
	assert.Equal(t, EventError, next(t, a).Event)

	hub.HandleIncoming(a, frame(t, "dance", nil))
	assert.Equal(t, EventError, next(t, a).Event)

	hub.HandleIncoming(a, frame(t, EventJoinRoom, ""))
	assert.Equal(t, EventError, next(t, a).Event)
}

func TestBazmHub_UnregisterLeavesRooms(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, b := joinedPair(t, hub)
	assert.Equal(t, 2, hub.RoomSize(room))

	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.RoomSize(room))
	assert.False(t, hub.IsUserConnected(alice))

	_, open := <-a.Send
	assert.False(t, open)

	// Unregistering twice is harmless.
	hub.UnregisterClient(a)

	hub.UnregisterClient(b)
	assert.Equal(t, 0, hub.RoomSize(room))
}

func TestBazmHub_PerUserLimit(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(alice, fakeConn{})
		require.NoError(t, err)
	}
	_, err := hub.Register(alice, fakeConn{})
	assert.ErrorIs(t, err, ErrUserConnLimit)
}

func TestBazmHub_PublishRoomReachesEveryone(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, b := joinedPair(t, hub)

	require.NoError(t, hub.PublishRoom(context.Background(), room, EventReceiveMessage, map[string]any{"seq": 7}))
	assert.Equal(t, EventReceiveMessage, next(t, a).Event)
	assert.Equal(t, EventReceiveMessage, next(t, b).Event)
}

func TestBazmHub_FanOutThroughRedis(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two hubs sharing one Redis stand in for two instances.
	hub1 := NewBazmHub(NewNotifier(rdb), nil)
	hub2 := NewBazmHub(NewNotifier(rdb), nil)
	require.NoError(t, hub1.StartWiring(ctx))
	require.NoError(t, hub2.StartWiring(ctx))

	a, err := hub1.Register(alice, fakeConn{})
	require.NoError(t, err)
	b, err := hub2.Register(bob, fakeConn{})
	require.NoError(t, err)
	hub1.HandleIncoming(a, frame(t, EventJoinRoom, room))
	hub2.HandleIncoming(b, frame(t, EventJoinRoom, room))
	next(t, a)
	next(t, b)

	hub1.HandleIncoming(a, frame(t, EventSendMessage, map[string]any{"room": room, "content": "across"}))

	got := next(t, b)
	assert.Equal(t, EventReceiveMessage, got.Event)
	assert.Contains(t, string(got.Data), "across")
	assertSilent(t, a)
}

func TestBazmHub_Shutdown(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	a, _ := joinedPair(t, hub)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, "server_shutdown", next(t, a).Event)
	_, open := <-a.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.RoomSize(room))
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	c := NewClient(hub, fakeConn{}, alice)
	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	assert.NotPanics(t, func() { c.TrySend([]byte("overflow")) })
	assert.Len(t, c.Send, sendBuffer)

	c.close()
	assert.NotPanics(t, func() { c.TrySend([]byte("after close")) })
}

func TestClient_ReadPumpUnregistersOnClose(t *testing.T) {
	hub := NewBazmHub(nil, nil)
	c, err := hub.Register(alice, fakeConn{})
	require.NoError(t, err)
	require.True(t, hub.IsUserConnected(alice))

	c.ReadPump()

	assert.False(t, hub.IsUserConnected(alice))
	_, open := <-c.Send
	assert.False(t, open)
}

func TestBazmHub_DeliversLocallyUntilWired(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewBazmHub(NewNotifier(rdb), nil)

	dead, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, hub.StartWiring(dead))
	assert.False(t, hub.Wired())

	a, b := joinedPair(t, hub)
	hub.HandleIncoming(a, frame(t, EventSendMessage, map[string]any{"room": room, "content": "still here"}))
	got := next(t, b)
	assert.Equal(t, EventReceiveMessage, got.Event)
	assert.Contains(t, string(got.Data), "still here")
	assertSilent(t, a)
}

func TestBazmHub_UnwiresWhenSubscriptionEnds(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewBazmHub(NewNotifier(rdb), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, hub.StartWiring(ctx))
	assert.True(t, hub.Wired())

	cancel()
	assert.Eventually(t, func() bool { return !hub.Wired() }, time.Second, 10*time.Millisecond)

	a, b := joinedPair(t, hub)
	hub.HandleIncoming(a, frame(t, EventSendMessage, map[string]any{"room": room, "content": "local"}))
	assert.Equal(t, EventReceiveMessage, next(t, b).Event)
}
