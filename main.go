package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"channel-chat-service/internal/config"
	"channel-chat-service/internal/db"
	"channel-chat-service/internal/handlers"
	"channel-chat-service/internal/middleware"
	"channel-chat-service/internal/observability"
	"channel-chat-service/internal/rabbitmq"
	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/session"
	"channel-chat-service/internal/telemetry"
	"channel-chat-service/internal/ws"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, "channel-chat-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.chat", "channel-chat-service", cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	sessionRepo := repositories.NewSessionRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	resolver := session.NewResolver(sessionRepo, userRepo, cfg.SessionTTL)

	hub := ws.NewHub()
	socketHandler := ws.NewSocketHandler(hub)

	messageHandler := handlers.NewMessageHandler(messageRepo, channelRepo, resolver, hub, audit)
	channelHandler := handlers.NewChannelHandler(channelRepo, messageRepo, resolver, hub, audit, cfg.PageSize)
	userHandler := handlers.NewUserHandler(userRepo, sessionRepo, resolver, audit)
	keyHandler := handlers.NewKeyHandler(resolver, hub)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware("channel-chat-service"))

	router.POST("/api/send-message", messageHandler.SendMessage)
	router.POST("/api/edit-message", messageHandler.EditMessage)
	router.POST("/api/add-message-reaction", messageHandler.AddReaction)
	router.GET("/api/message/:messageID", messageHandler.GetMessage)

	router.POST("/api/create-channel", channelHandler.CreateChannel)
	router.GET("/api/channel-list", channelHandler.ListChannels)
	router.GET("/api/channel/:channelID/latest-messages", channelHandler.GetChannelPage)

	router.POST("/api/register", userHandler.Register)
	router.POST("/api/login", userHandler.Login)
	router.GET("/api/user/:userID", userHandler.GetUser)
	router.GET("/api/session/:sessionID", userHandler.GetSession)

	router.POST("/api/release-public-key", keyHandler.ReleasePublicKey)

	router.GET("/ws", socketHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
