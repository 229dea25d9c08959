package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"classroom-chat-service/internal/config"
	"classroom-chat-service/internal/handlers"
	"classroom-chat-service/internal/middleware"
	"classroom-chat-service/internal/observability"
	"classroom-chat-service/internal/rabbitmq"
	"classroom-chat-service/internal/services"
	"classroom-chat-service/internal/store"
	"classroom-chat-service/internal/telemetry"
	"classroom-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	if cfg.AMQPURL != "" {
		eventsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("ws event publishing disabled: %v", err)
		} else {
			defer eventsPublisher.Close()
			observability.SetPublisher(eventsPublisher)
		}
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	hub := ws.NewHub()
	chatService := services.NewChatService(st, hub)
	requestService := services.NewRequestService(st, hub)

	chatHandler := handlers.NewChatHandler(chatService, audit)
	requestHandler := handlers.NewRequestHandler(requestService, audit)
	roomWS := ws.NewRoomWebSocketHandler(hub, chatService)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.RequestID())

	router.GET("/chat/:room", chatHandler.GetHistory)
	router.DELETE("/chat/:room/:message_id", chatHandler.DeleteMessage)

	router.POST("/class-request", requestHandler.Create)
	router.DELETE("/class-request/:id", requestHandler.Delete)
	router.POST("/class-request/:id/join", requestHandler.Join)
	router.GET("/class-request/:id/participants", requestHandler.Participants)
	router.GET("/class-requests/:room", requestHandler.ListByRoom)

	router.GET("/ws", roomWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.OpenSQL("postgres", cfg.DatabaseDSN)
	case "sqlite":
		return store.OpenSQL("sqlite3", cfg.DatabaseDSN)
	case "redis":
		return store.OpenRedis(ctx, cfg.RedisAddr, "classroom:")
	default:
		log.Printf("using in-memory store, chat history will not survive restarts")
		return store.NewMemoryStore(), nil
	}
}
