package service

import (
	"context"
	"time"

	"helpdesk_chat/internal/repository"
	"helpdesk_chat/pkg/logger"
)

type RateLimitService interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Allow учитывает событие и сообщает, укладывается ли оно в лимит.
	// При сбое счетчика событие пропускается.
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.rateLimitRepo.CheckLimit(ctx, key, limit, window)
}

func (s *rateLimitService) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return s.rateLimitRepo.Increment(ctx, key, window)
}

func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}

	count, err := s.rateLimitRepo.Increment(ctx, key, window)
	if err != nil {
		s.log.Warn("Rate limiter unavailable, allowing event", "error", err, "key", key)
		return true
	}

	return count <= int64(limit)
}
