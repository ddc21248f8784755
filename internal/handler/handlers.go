package handler

import (
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/service"
	"helpdesk_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
	Stats     *StatsHandler
}

func NewHandlers(services *service.Services, registry *presence.Registry, checks map[string]HealthCheck, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(checks, registry),
		Chat:      NewChatHandler(services.Chat, log),
		WebSocket: NewWebSocketHandler(services, cfg, log),
		Stats:     NewStatsHandler(services.Stats, log),
	}
}
