package main

// @title           Chat Relay API
// @version         1.0
// @description     Presence queries for the real-time chat relay
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/adapters/kafka"
	"chat-relay/internal/api/routes"
	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/database"
	"chat-relay/internal/repository"
	"chat-relay/internal/services"
	"chat-relay/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting chat relay")

	// Initialize database connection
	db, err := database.NewDatabaseConnection(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			slog.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
	}
	chatRepo := repository.NewChatRepository(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	verifier := auth.NewJWTVerifier(cfg.JWT.Secret)
	deps := websocket.Dependencies{
		Verifier: verifier,
		Store:    chatRepo,
		Metrics:  websocket.NewMetrics(reg),
		Logger:   slog.Default(),
	}
	if cfg.Relay.PersistReadStatus {
		deps.ReadStatus = chatRepo
	}

	opts := routes.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		WSRateLimit:    cfg.Relay.WSRateLimit,
		WSRateWindow:   cfg.Relay.WSRateWindow,
		Gatherer:       reg,
	}

	// Redis is optional: without it presence is not mirrored and
	// connection attempts are not rate limited.
	if cfg.Redis.URI != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		redisService := services.NewRedisService(redisClient.GetClient())
		if err := redisService.ClearOnlineUsers(context.Background()); err != nil {
			slog.Warn("Failed to clear stale online users", "error", err)
		}
		deps.Mirror = redisService
		opts.Limiter = redisService
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		publisher := kafka.NewMessagePublisher(producer, cfg.Kafka.Topic)
		defer publisher.Close()
		deps.Publisher = publisher
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(deps, websocket.HubConfig{
		PersistTimeout:    cfg.Relay.PersistTimeout,
		TypingIdleTimeout: cfg.Relay.TypingIdleTimeout,
		SendBufferSize:    cfg.Relay.SendBufferSize,
		MaxMessageSize:    cfg.Relay.MaxMessageSize,
	})
	hubDone := make(chan struct{})
	go func() {
		hub.Run()
		close(hubDone)
	}()

	router := routes.NewRouter(hub, verifier, opts)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new connections, then close the live ones
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	hub.Stop()

	select {
	case <-hubDone:
	case <-ctx.Done():
		slog.Warn("Timed out waiting for hub to stop")
	}

	slog.Info("Server stopped")
}
