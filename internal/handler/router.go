package handler

import (
	"github.com/gin-gonic/gin"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/middleware"
	"helpdesk_chat/pkg/logger"
)

func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	// Health check
	router.GET("/health", handlers.Health.Check)

	// API v1
	v1 := router.Group("/api/v1")
	{
		chat := v1.Group("/chat")
		chat.Use(rateLimitMiddleware.Limit(), authMiddleware.RequireAuth())
		{
			chat.GET("/history/:userId/:counterpartId", handlers.Chat.GetHistory)
			chat.PATCH("/read/:userId/:counterpartId", handlers.Chat.MarkRead)
			chat.GET("/search/:userId", handlers.Chat.Search)
			chat.GET("/unread/:userId", handlers.Chat.Unread)
			chat.GET("/presence", handlers.Chat.Presence)
			chat.GET("/stats", handlers.Stats.GetChatStats)
		}
	}

	// WebSocket endpoint чата: аутентификация внутри обработчика, до апгрейда
	router.GET("/ws/chat", handlers.WebSocket.HandleChat)

	return router
}
