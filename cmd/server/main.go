package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumen-collective/lumenhub-api/internal/auth"
	"github.com/lumen-collective/lumenhub-api/internal/config"
	"github.com/lumen-collective/lumenhub-api/internal/content"
	"github.com/lumen-collective/lumenhub-api/internal/events"
	"github.com/lumen-collective/lumenhub-api/internal/logger"
	"github.com/lumen-collective/lumenhub-api/internal/notification"
	"github.com/lumen-collective/lumenhub-api/internal/storage/pg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	config.LoadConfig()

	log := logger.New(logger.FromConfig(config.AppConfig.LogLevel, config.AppConfig.LogFormat))

	gin.SetMode(config.AppConfig.GinMode)

	// Initialize database.
	db, err := pg.InitDatabase(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	validator, err := newTokenValidator(config.AppConfig)
	if err != nil {
		log.Error("failed to initialize token validator", "error", err)
		os.Exit(1)
	}
	authMiddleware := auth.NewMiddleware(validator)

	// The registry is constructed once per server lifetime and injected into
	// the handlers that own connection lifecycles.
	registry := notification.NewRegistry(log)
	store := notification.NewPGStore(db.DB, log)
	dispatcher := notification.NewDispatcher(store, registry, log)
	resolver := notification.NewResolver(content.NewPGLookup(db.DB, log))

	handlerOpts := notification.HandlerOptions{
		Client: notification.ClientOptions{
			BufferSize:   config.AppConfig.WSOutboundBufferSize,
			WriteTimeout: config.AppConfig.WSWriteTimeout,
			PingInterval: config.AppConfig.WSPingInterval,
		},
		HandshakeTimeout: config.AppConfig.WSHandshakeTimeout,
		PongTimeout:      config.AppConfig.WSPongTimeout,
	}
	notificationHandler := notification.NewHandler(store, registry, resolver, validator, handlerOpts, log)

	// Domain event ingress, enabled when NATS is configured.
	var subscriber *events.Subscriber
	if config.AppConfig.NatsURL != "" {
		subscriber, err = events.NewSubscriber(
			config.AppConfig.NatsURL,
			config.AppConfig.EventSubject,
			config.AppConfig.EventQueueGroup,
			dispatcher,
			log,
		)
		if err != nil {
			log.Error("failed to start event subscriber", "error", err)
			os.Exit(1)
		}
	}

	router := gin.Default()

	// CORS middleware.
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", config.AppConfig.CORSAllowedOrigins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "instance": logger.GetInstanceID()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		notifications := api.Group("/notifications")
		{
			// The live channel authenticates inside the handler (header or
			// first-frame handshake), so it sits outside RequireAuth.
			notifications.GET("/ws", notificationHandler.Connect)

			authed := notifications.Group("")
			authed.Use(authMiddleware.RequireAuth())
			{
				authed.GET("", notificationHandler.List)
				authed.PATCH("/:id/read", notificationHandler.MarkRead)
				authed.POST("/read-all", notificationHandler.MarkAllRead)
			}
		}
	}

	port := ":" + config.AppConfig.Port
	log.Info("server listening", "port", port)

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	if subscriber != nil {
		subscriber.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.AppConfig.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	registry.CloseAll()
	db.DB.Close()

	log.Info("server exited")
}

func newTokenValidator(cfg *config.Config) (auth.TokenValidator, error) {
	switch cfg.ValidatorType {
	case "jwks":
		return auth.NewJWKSValidator(cfg.JWTJWKSURL)
	case "hmac":
		if cfg.JWTHMACSecret == "" {
			return nil, errors.New("JWT_HMAC_SECRET is required for the hmac validator")
		}
		return auth.NewHMACValidator(cfg.JWTHMACSecret), nil
	default:
		return nil, errors.New("validator type must be either 'jwks' or 'hmac'")
	}
}
