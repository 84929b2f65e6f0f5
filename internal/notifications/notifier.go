// Package notifications provides real-time Bazm delivery over WebSockets and Redis.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"harfzaar/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "bazm:room:"

// RoomEvent is the envelope fanned out to every instance serving a room.
// Origin is the id of the client that produced the event; that client is skipped on delivery.
type RoomEvent struct {
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin,omitempty"`
}

// Notifier publishes room events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events travel through Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// RoomChannel returns the pub/sub channel for a room.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// RoomFromChannel extracts the room id from a channel name.
func RoomFromChannel(channel string) (string, bool) {
	room, ok := strings.CutPrefix(channel, roomChannelPrefix)
	return room, ok && room != ""
}

// PublishRoom sends ev on its room channel. Without Redis it is a no-op.
func (n *Notifier) PublishRoom(ctx context.Context, ev RoomEvent) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}
	return n.rdb.Publish(ctx, RoomChannel(ev.Room), payload).Err()
}

// StartRoomSubscriber subscribes to `bazm:room:*` and calls onMessage for
// each incoming message until ctx is cancelled.
func (n *Notifier) StartRoomSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	// Wait for the subscription so events published right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe room channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in room subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
