package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phostann/ybook/internal/auth"
	"github.com/phostann/ybook/internal/cache"
	"github.com/phostann/ybook/internal/config"
	"github.com/phostann/ybook/internal/directory"
	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/handler"
	"github.com/phostann/ybook/internal/middleware"
	"github.com/phostann/ybook/internal/registry"
	"github.com/phostann/ybook/internal/repository"
	"github.com/phostann/ybook/internal/service"
	"github.com/phostann/ybook/pkg/database"
	pkglog "github.com/phostann/ybook/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "chat-service",
	})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(cfg.Database.ToDatabase())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db,
		&domain.RoomModel{},
		&domain.RoomMemberModel{},
		&domain.MessageModel{},
		&domain.PresenceModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Repositories
	roomRepo := repository.NewGormRoomRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	presenceRepo := repository.NewGormPresenceRepository(db)

	// Redis presence cache
	presenceCache, err := cache.NewRedisPresenceCache(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer presenceCache.Close()
	logger.Info().Msg("redis presence cache connected")

	// Collaborators
	userDirectory := directory.NewGormUserDirectory(db)
	validator := auth.NewJWTValidator(cfg.Auth.Secret, cfg.Auth.Issuer)

	// Services
	chatService := service.NewChatService(roomRepo, messageRepo, presenceRepo, userDirectory)
	presenceService := service.NewPresenceService(presenceRepo, roomRepo, presenceCache, cfg.Presence.OnlineTTL)

	// Connection registry shared by the websocket gateway and REST fan-out
	connRegistry := registry.New()

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(validator)
	httpHandler := handler.NewHTTPHandler(chatService, presenceService, connRegistry, authMiddleware)
	wsHandler := handler.NewWSHandler(connRegistry, chatService, presenceService, validator, cfg.WebSocket)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/ws", wsHandler.HandleWebSocket)
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	// No read/write timeouts; websocket connections are long-lived.
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("chat-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat-service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("chat-service stopped")
}
