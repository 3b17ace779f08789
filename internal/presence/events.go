package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	liveEventsChannel = "live:events"
	publishTimeout    = 5 * time.Second
)

// Session change events published on the live events channel.
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventSessionChanged = "session_changed"
)

type eventPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// Events is the Redis pub/sub bridge for live session change notifications.
// Every store mutation publishes here; feeds on all instances subscribe and
// refresh on each message.
type Events struct {
	client *redis.Client
	logger *zap.Logger
}

// NewEvents creates a live events bridge.
func NewEvents(client *redis.Client, logger *zap.Logger) *Events {
	return &Events{client: client, logger: logger}
}

// Publish publishes a session change event. Errors are returned but callers
// treat them as non-fatal: polling covers missed pushes.
func (e *Events) Publish(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(eventPayload{Event: event, Data: data, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return e.client.Publish(ctx, liveEventsChannel, body).Err()
}

// Subscribe subscribes to the live events channel and calls handler for each
// message. Returns a cancel function to stop the subscription.
func (e *Events) Subscribe(handler func(event string, data []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := e.client.Subscribe(ctx, liveEventsChannel)
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
				var p eventPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
