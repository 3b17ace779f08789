// Package main runs the background worker: points awards and stale session
// sweeps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bilda/backend/config"
	"github.com/bilda/backend/internal/points"
	"github.com/bilda/backend/internal/presence"
	"github.com/bilda/backend/internal/worker"
	"github.com/bilda/backend/pkg/database"
	"github.com/bilda/backend/pkg/queue"
	"github.com/bilda/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	pointsRepo := points.NewRepository(pool)
	processor := worker.NewPointsProcessor(pointsRepo, jobQueue, int64(cfg.Points.SecondsPerPoint), logger)

	presenceRepo := presence.NewRepository(pool)
	sweeper := worker.NewSweeper(presenceRepo, cfg.Presence.StaleAfter, cfg.Presence.SweepInterval, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(runCtx)
	go sweeper.Run(runCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
