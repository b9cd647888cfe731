package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rx3lixir/focus_rooms/internal/archive"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/config"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/room"
	"github.com/rx3lixir/focus_rooms/internal/server"
	"github.com/rx3lixir/focus_rooms/internal/session"
	"github.com/rx3lixir/focus_rooms/internal/storage/postgres"
	"github.com/rx3lixir/focus_rooms/internal/storage/redis"
	"github.com/rx3lixir/focus_rooms/internal/storage/s3"
	"github.com/rx3lixir/focus_rooms/internal/user"
	"github.com/rx3lixir/focus_rooms/internal/websocket"
	"github.com/rx3lixir/focus_rooms/pkg/logger"
)

const dbTimeout = 5 * time.Second

func main() {
	// Values from .env become APP_* overrides for viper
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "internal/config/config.yaml"
	}

	// Initializing and validating config
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config file: %v\n", err)
		os.Exit(1)
	}
	c := cm.GetConfig()
	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initializing logger
	appLogger, err := logger.New(logger.Config{
		Env:       c.GeneralParams.Env,
		AddSource: c.GeneralParams.Env == "dev",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	log := appLogger.Logger

	log.Info("config loaded",
		"env", c.GeneralParams.Env,
		"http_server_address", c.HttpServerParams.GetAddress(),
		"database", c.MainDBParams.Name,
		"redis", c.RedisParams.Enabled(),
	)

	if err := run(c, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(c *config.Config, log *slog.Logger) error {
	// Global context with cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := c.GeneralParams.Location()
	if err != nil {
		return err
	}

	// Postgres
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      c.MainDBParams.GetDSN(),
		MaxConns: c.MainDBParams.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database ready", "db", c.MainDBParams.Name)

	// Object storage for chat archives
	s3Client, err := s3.NewClient(ctx, s3.Config{
		Endpoint:        c.S3Params.Endpoint,
		AccessKeyID:     c.S3Params.AccessKeyID,
		SecretAccessKey: c.S3Params.SecretAccessKey,
		UseSSL:          c.S3Params.UseSSL,
		BucketName:      c.S3Params.BucketName,
	})
	if err != nil {
		return fmt.Errorf("failed to init object storage: %w", err)
	}
	log.Info("object storage ready", "bucket", c.S3Params.BucketName)

	// Invalidation fan-out: in process, or through redis across instances
	wsManager := websocket.NewManager(c.HttpServerParams.AllowedOrigins, log)
	defer wsManager.Shutdown()

	var notifier event.Notifier = wsManager
	if c.RedisParams.Enabled() {
		redisClient, err := redis.NewClient(ctx, redis.ClientConfig{
			Address:  c.RedisParams.Address,
			Password: c.RedisParams.Password,
			DB:       c.RedisParams.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		broker := redis.NewBroker(redisClient, c.RedisParams.Prefix, wsManager, log)
		go broker.Run(ctx)
		notifier = broker
	}

	// Stores
	userStore := user.NewPostgresStore(pool)
	roomStore := room.NewPostgresStore(pool)
	participantStore := participant.NewPostgresStore(pool)
	sessionStore := session.NewPostgresStore(pool)
	chatStore := chat.NewPostgresStore(pool)

	// Services
	authService := auth.NewService(c.GeneralParams.SecretKey, 15*time.Minute, 7*24*time.Hour)
	archiver := archive.NewChatArchiver(s3Client, chatStore, c.S3Params.BucketName, log)

	roomService := room.NewService(roomStore, archiver, notifier, log)
	participantService := participant.NewService(roomStore, participantStore, notifier, log, c.PresenceParams.ParticipantWindow)
	sessionService := session.NewService(sessionStore, participantStore, notifier, log, loc)
	chatService := chat.NewService(chatStore, participantStore, notifier, log, c.PresenceParams.CursorWindow)

	router := server.NewRouter(server.RouterConfig{
		UserHandler:        user.NewHandler(user.NewService(userStore, authService, log), log, dbTimeout),
		RoomHandler:        room.NewHandler(roomService, log, dbTimeout),
		ParticipantHandler: participant.NewHandler(participantService, log, dbTimeout),
		SessionHandler:     session.NewHandler(sessionService, log, dbTimeout),
		ChatHandler:        chat.NewHandler(chatService, log, dbTimeout),
		WSHandler:          websocket.NewHandler(wsManager, authService, log),
		AuthService:        authService,
		RateLimiter:        server.NewRateLimiter(c.RateLimitParams.RPS, c.RateLimitParams.Burst),
		AllowedOrigins:     c.HttpServerParams.AllowedOrigins,
		Health:             pool.Ping,
		Log:                log,
	})

	httpServer := server.New(c.HttpServerParams.GetAddress(), router, log)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we recieve a signal or error
	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		wsManager.Shutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}

	return nil
}
