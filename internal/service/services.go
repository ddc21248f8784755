package service

import (
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/repository"
	"helpdesk_chat/pkg/logger"
)

type Services struct {
	Gateway   GatewayService
	Relay     RelayService
	Broadcast BroadcastService
	Chat      ChatService
	RateLimit RateLimitService
	Audit     AuditService
	Stats     StatsService
}

func NewServices(repos *repository.Repositories, registry *presence.Registry, cfg *config.Config, log logger.Logger) *Services {
	rateLimit := NewRateLimitService(repos.RateLimit, log)
	audit := NewAuditService(repos.Audit, log)
	broadcast := NewBroadcastService(registry, rateLimit, cfg.Chat, log)

	return &Services{
		Gateway:   NewGatewayService(repos.User, registry, broadcast, audit, cfg.JWT, log),
		Relay:     NewRelayService(repos.Chat, registry, rateLimit, cfg.Chat, log),
		Broadcast: broadcast,
		Chat:      NewChatService(repos.Chat, repos.User, registry, broadcast, audit, log),
		RateLimit: rateLimit,
		Audit:     audit,
		Stats:     NewStatsService(repos.Stats, repos.User, registry, log),
	}
}
