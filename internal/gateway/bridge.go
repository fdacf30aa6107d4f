package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Channel is the Redis pub/sub channel carrying gateway events between the
// pipeline and hub replicas.
const Channel = "previewgen:events"

type envelope struct {
	UserID  string          `json:"userId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisNotifier publishes pipeline events to the shared channel so every hub
// replica can forward them to its local sessions.
type RedisNotifier struct {
	rdb redis.UniversalClient
}

// NewRedisNotifier constructs a notifier on the given Redis client.
func NewRedisNotifier(rdb redis.UniversalClient) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Publish sends the event. Zero subscribers is fine; delivery to clients is
// best-effort by design.
func (n *RedisNotifier) Publish(ctx context.Context, userID, event string, payload []byte) error {
	data, err := json.Marshal(envelope{UserID: userID, Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// RunBridge subscribes to the shared channel and forwards events to the hub
// until the context is canceled.
func RunBridge(ctx context.Context, rdb redis.UniversalClient, hub *Hub, log zerolog.Logger) error {
	sub := rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn().Err(err).Msg("malformed gateway envelope")
				continue
			}
			hub.Emit(env.UserID, Event{Event: env.Event, Payload: env.Payload})
		}
	}
}
