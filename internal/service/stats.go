package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/repository"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

// StatsWindow - окно для счетчика свежих сообщений
const StatsWindow = 24 * time.Hour

type StatsService interface {
	GetChatStats(ctx context.Context, callerID uuid.UUID) (*domain.ChatStats, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
	userRepo  repository.UserRepository
	registry  *presence.Registry
	log       logger.Logger
	now       func() time.Time
}

func NewStatsService(statsRepo repository.StatsRepository, userRepo repository.UserRepository, registry *presence.Registry, log logger.Logger) StatsService {
	return &statsService{
		statsRepo: statsRepo,
		userRepo:  userRepo,
		registry:  registry,
		log:       log,
		now:       time.Now,
	}
}

func (s *statsService) GetChatStats(ctx context.Context, callerID uuid.UUID) (*domain.ChatStats, error) {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != domain.DirectoryRoleAdmin {
		return nil, fmt.Errorf("%w: chat stats are available to admins only", apperrors.ErrForbidden)
	}

	stats, err := s.statsRepo.GetChatStats(ctx, s.now().Add(-StatsWindow))
	if err != nil {
		return nil, storeError("chat stats", err)
	}

	counts := s.registry.Count()
	stats.Connected = map[string]int{
		domain.RoleRequester.Label(): counts[domain.RoleRequester],
		domain.RoleResponder.Label(): counts[domain.RoleResponder],
	}
	return stats, nil
}
