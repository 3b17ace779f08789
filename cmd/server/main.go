// Package main runs the Bilda HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bilda/backend/config"
	"github.com/bilda/backend/internal/auth"
	"github.com/bilda/backend/internal/chat"
	"github.com/bilda/backend/internal/features"
	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/internal/points"
	"github.com/bilda/backend/internal/presence"
	"github.com/bilda/backend/internal/profiles"
	"github.com/bilda/backend/internal/projects"
	"github.com/bilda/backend/internal/realtime"
	"github.com/bilda/backend/internal/stats"
	"github.com/bilda/backend/internal/viewers"
	"github.com/bilda/backend/pkg/database"
	"github.com/bilda/backend/pkg/queue"
	"github.com/bilda/backend/pkg/redis"
	"github.com/bilda/backend/pkg/response"
	"github.com/bilda/backend/pkg/storage"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AvatarsBucket:        cfg.AWS.AvatarsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	github := auth.NewGitHubExchanger(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.AuthURL, cfg.GitHub.TokenURL, logger)
	authHandler := auth.NewHandler(authRepo, jwtService, github, logger)

	// Profiles and projects
	profileRepo := profiles.NewRepository(pool)
	profileHandler := profiles.NewHandler(profileRepo, s3Client, logger)
	projectRepo := projects.NewRepository(pool)
	projectHandler := projects.NewHandler(projectRepo)

	// Live presence: session store, change events, enriched feed
	presenceRepo := presence.NewRepository(pool)
	liveEvents := presence.NewEvents(rdb.Client, logger)
	enricher := presence.NewEnricher(profileRepo, projectRepo, logger)
	feed := presence.NewFeed(presenceRepo, enricher, liveEvents, cfg.Presence.StaleAfter, cfg.Presence.PollInterval, logger)
	presenceHandler := presence.NewHandler(presenceRepo, feed, liveEvents, cfg.Presence.HeartbeatInterval, logger)

	// Every published snapshot fans out to lobby WebSocket clients.
	feed.OnPublish(func(snap presence.Snapshot) {
		hub.BroadcastToLobby("live_feed", snap)
	})

	// Chat
	chatRepo := chat.NewRepository(pool)
	chatFilter := chat.NewFilter(cfg.Chat.BannedPhrases)
	chatHandler := chat.NewHandler(chatRepo, hub, chatFilter)

	// Points and viewer logs
	pointsRepo := points.NewRepository(pool)
	pointsHandler := points.NewHandler(pointsRepo)
	viewerRepo := viewers.NewRepository(pool)

	// Features
	featureRepo := features.NewRepository(pool)
	featureHandler := features.NewHandler(featureRepo)

	// Stats
	statsHandler := stats.NewHandler(presenceRepo, viewerRepo, chatRepo)

	// Viewer counts flow back into the session row and notify feeds.
	hub.SetAudienceChangeHandler(func(channelUserID uuid.UUID, count int) {
		ctx := context.Background()
		if err := presenceRepo.SetViewers(ctx, channelUserID, count); err != nil {
			logger.Warn("set viewers", zap.Error(err), zap.String("channel", channelUserID.String()))
			return
		}
		if err := liveEvents.Publish(presence.EventSessionChanged, gin.H{"user_id": channelUserID}); err != nil {
			logger.Warn("publish session change", zap.Error(err))
		}
	})

	// Join/leave writes viewer logs; leave enqueues the points award job.
	hub.SetViewerLogger(
		func(channelUserID, sessionID, userID uuid.UUID) {
			if sessionID == uuid.Nil {
				return
			}
			if _, err := viewerRepo.LogJoin(context.Background(), channelUserID, sessionID, userID); err != nil {
				logger.Warn("log join", zap.Error(err))
			}
		},
		func(channelUserID, sessionID, userID uuid.UUID, _ time.Time) {
			ctx := context.Background()
			logID, watchSeconds, err := viewerRepo.LogLeave(ctx, channelUserID, userID)
			if err != nil {
				logger.Warn("log leave", zap.Error(err))
				return
			}
			if logID == uuid.Nil || watchSeconds <= 0 {
				return
			}
			if err := jobQueue.EnqueuePointsAward(ctx, queue.PointsAwardPayload{
				ViewerLogID:   logID,
				UserID:        userID,
				ChannelUserID: channelUserID,
				WatchSeconds:  watchSeconds,
			}); err != nil {
				logger.Warn("enqueue points award", zap.Error(err))
			}
		},
	)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	resolveSession := func(channelUserID uuid.UUID) uuid.UUID {
		session, err := presenceRepo.GetByUserID(context.Background(), channelUserID)
		if err != nil || session == nil {
			return uuid.Nil
		}
		return session.ID
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// OAuth code exchange for the SPA (public; raw token response)
	router.POST("/api/oauth/callback", authHandler.OAuthCallback)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public reads
	router.GET("/live", presenceHandler.GetFeed)
	router.GET("/profiles/:handle", profileHandler.GetByHandle)
	router.GET("/projects/:id", projectHandler.GetByID)
	router.GET("/channels/:user_id/chat", chatHandler.History)
	router.GET("/channels/:user_id/stats", statsHandler.GetByChannel)
	router.GET("/features", featureHandler.List)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", authHandler.Me)
		api.PATCH("/me/profile", profileHandler.Update)
		api.POST("/me/avatar", profileHandler.UploadAvatar)
		api.POST("/me/avatar/upload-url", profileHandler.GenerateAvatarUploadURL)

		// Projects
		api.GET("/projects", projectHandler.ListMine)
		api.POST("/projects", projectHandler.Create)
		api.PATCH("/projects/:id", projectHandler.Update)
		api.DELETE("/projects/:id", projectHandler.Delete)

		// Live sessions
		api.POST("/live/start", presenceHandler.Start)
		api.POST("/live/heartbeat", presenceHandler.Heartbeat)
		api.POST("/live/stop", presenceHandler.Stop)
		api.POST("/live/refresh", presenceHandler.RefreshFeed)
		api.GET("/live/:user_id/watch", presenceHandler.Watch)

		// Chat
		api.POST("/channels/:user_id/chat", chatHandler.Send)
		api.DELETE("/channels/:user_id/chat/:message_id", chatHandler.DeleteMessage)
		api.POST("/channels/:user_id/chat/timeouts", chatHandler.Timeout)
		api.POST("/channels/:user_id/moderators", chatHandler.AddModerator)
		api.DELETE("/channels/:user_id/moderators/:mod_id", chatHandler.RemoveModerator)

		// Points
		api.GET("/points", pointsHandler.GetBalance)
		api.POST("/points/redeem", pointsHandler.Redeem)

		// Feature requests
		api.POST("/features", featureHandler.Create)
		api.POST("/features/:id/upvote", featureHandler.Upvote)
		api.PATCH("/features/:id/status", middleware.RequireRole("admin"), featureHandler.UpdateStatus)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, resolveSession))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()
	if err := feed.Start(feedCtx); err != nil {
		logger.Fatal("start feed", zap.Error(err))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	feed.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
