package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// LobbyChannelID is the pseudo-channel for clients watching the live feed
// rather than a specific streamer. Lobby clients receive feed snapshots and
// are not counted as viewers anywhere.
var LobbyChannelID = uuid.Nil

// AudienceChangeHandler is called when the viewer count changes for a
// streamer channel (e.g. to update viewers_count on the live session).
type AudienceChangeHandler func(channelUserID uuid.UUID, count int)

// Hub maintains channel_user_id -> set of connections and broadcasts
// messages. Uses Redis pub/sub for horizontal scaling: local broadcast +
// publish to Redis.
type Hub struct {
	// channelUserID -> map[clientID]*Client
	channels   map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per channel
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
	onAudience AudienceChangeHandler
	onJoin     func(channelUserID, sessionID, userID uuid.UUID)
	onLeave    func(channelUserID, sessionID, userID uuid.UUID, joinedAt time.Time)
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishChannelEvent(channelUserID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to channel topics and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeChannel(channelUserID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		channels: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetAudienceChangeHandler sets the callback for viewer count changes.
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// SetViewerLogger sets join/leave callbacks for viewer logs and points
// accrual. Lobby connections never trigger them.
func (h *Hub) SetViewerLogger(
	onJoin func(channelUserID, sessionID, userID uuid.UUID),
	onLeave func(channelUserID, sessionID, userID uuid.UUID, joinedAt time.Time),
) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// Register adds a client to a channel room. Starts the Redis subscription for
// the channel when the first client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.channels[c.ChannelUserID] == nil {
		h.channels[c.ChannelUserID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeChannel(c.ChannelUserID, func(event string, payload []byte) {
				h.BroadcastToChannel(c.ChannelUserID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.ChannelUserID] = cancel
			}
		}
	}
	h.channels[c.ChannelUserID][c.ID] = c
	count := len(h.channels[c.ChannelUserID])
	onAudience := h.onAudience
	onJoin := h.onJoin
	h.mu.Unlock()

	if c.ChannelUserID != LobbyChannelID {
		if onAudience != nil {
			onAudience(c.ChannelUserID, count)
		}
		if onJoin != nil {
			onJoin(c.ChannelUserID, c.SessionID, c.UserID)
		}
	}
	h.logger.Debug("client joined channel", zap.String("client_id", c.ID), zap.String("channel", c.ChannelUserID.String()))
}

// Unregister removes a client from a channel room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.channels[c.ChannelUserID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			delete(h.channels, c.ChannelUserID)
			if cancel, ok := h.subs[c.ChannelUserID]; ok {
				cancel()
				delete(h.subs, c.ChannelUserID)
			}
		}
	}
	onAudience := h.onAudience
	onLeave := h.onLeave
	h.mu.Unlock()

	if c.ChannelUserID != LobbyChannelID {
		if onAudience != nil {
			onAudience(c.ChannelUserID, count)
		}
		if onLeave != nil {
			onLeave(c.ChannelUserID, c.SessionID, c.UserID, c.JoinedAt)
		}
	}
	h.logger.Debug("client left channel", zap.String("client_id", c.ID), zap.String("channel", c.ChannelUserID.String()))
}

// BroadcastToChannel sends a message to all clients in a channel (local only).
func (h *Hub) BroadcastToChannel(channelUserID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.channels[channelUserID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToChannelAndPublish sends to local clients and publishes to Redis
// for other instances.
func (h *Hub) BroadcastToChannelAndPublish(channelUserID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToChannel(channelUserID, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishChannelEvent(channelUserID, event, data)
	}
}

// PublishToChannelOnly publishes to Redis only (no direct local broadcast).
// The Redis subscriber callback performs the broadcast once for all
// instances, including this one, avoiding duplicate delivery to local
// clients. Used for chat messages.
func (h *Hub) PublishToChannelOnly(channelUserID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishChannelEvent(channelUserID, event, data)
		return
	}
	h.BroadcastToChannel(channelUserID, event, payload)
}

// BroadcastToLobby sends a message to live-feed watchers on this instance.
func (h *Hub) BroadcastToLobby(event string, payload interface{}) {
	h.BroadcastToChannel(LobbyChannelID, event, payload)
}

// AudienceCount returns the number of connected clients in a channel.
func (h *Hub) AudienceCount(channelUserID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelUserID])
}
