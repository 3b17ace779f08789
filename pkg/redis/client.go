package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the shared Redis handle. One connection pool serves the live
// session event channel, chat fan-out between server instances, and the
// points job queue, so both binaries construct exactly one of these.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient dials Redis and verifies the connection with a ping. Broadcast
// and queue consumers depend on Redis being reachable, so failing here aborts
// startup rather than surfacing later as silently dropped events.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", addr), zap.Int("db", db))
	return &Client{Client: rdb, logger: logger}, nil
}
