package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "channel:"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
type redisPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisPubSub bridges channel events across server instances via Redis
// pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for channel events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// PublishChannelEvent publishes an event to the streamer channel's Redis
// topic.
func (r *RedisPubSub) PublishChannelEvent(channelUserID uuid.UUID, event string, payload []byte) error {
	topic := channelPrefix + channelUserID.String()
	body, err := json.Marshal(redisPayload{Event: event, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, topic, body).Err()
}

// SubscribeChannel subscribes to a streamer channel's Redis topic and calls
// handler for each message. Returns a cancel function to stop the
// subscription.
func (r *RedisPubSub) SubscribeChannel(channelUserID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error) {
	topic := channelPrefix + channelUserID.String()
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, topic)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
