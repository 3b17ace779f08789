package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection. A client either watches a
// streamer channel or sits in the lobby receiving live-feed updates.
type Client struct {
	ID            string
	ChannelUserID uuid.UUID
	SessionID     uuid.UUID // live session at join time, uuid.Nil for lobby
	UserID        uuid.UUID
	Role          string
	JoinedAt      time.Time // set on connect for viewer logging
	hub           *Hub
	conn          *websocket.Conn
	send          chan WSMessage
	logger        *zap.Logger
}

// SessionResolver maps a streamer channel to its current live session ID.
// Returns uuid.Nil when the streamer is not live.
type SessionResolver func(channelUserID uuid.UUID) uuid.UUID

// ServeWs handles the WebSocket upgrade and runs the client loop. The
// "channel" query param selects a streamer channel by user ID; when absent the
// client joins the lobby and only receives live-feed updates.
func ServeWs(hub *Hub, logger *zap.Logger, jwtValidate func(token string) (userID, role string, err error), resolveSession SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		userIDStr, role, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, _ := uuid.Parse(userIDStr)

		channelUserID := LobbyChannelID
		if s := c.Query("channel"); s != "" {
			channelUserID, err = uuid.Parse(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
				return
			}
		}

		sessionID := uuid.Nil
		if channelUserID != LobbyChannelID && resolveSession != nil {
			sessionID = resolveSession(channelUserID)
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:            uuid.New().String(),
			ChannelUserID: channelUserID,
			SessionID:     sessionID,
			UserID:        userID,
			Role:          role,
			JoinedAt:      time.Now(),
			hub:           hub,
			conn:          conn,
			send:          make(chan WSMessage, 256),
			logger:        logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			if c.ChannelUserID == LobbyChannelID {
				continue
			}
			c.hub.BroadcastToChannelAndPublish(c.ChannelUserID, "viewer_count", map[string]int{
				"count": c.hub.AudienceCount(c.ChannelUserID),
			})
			c.hub.BroadcastToChannelAndPublish(c.ChannelUserID, "join", map[string]string{
				"user_id": c.UserID.String(),
			})
		default:
			// chat goes through the HTTP endpoint so moderation runs in one place
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
