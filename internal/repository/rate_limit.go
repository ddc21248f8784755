//go:generate go run go.uber.org/mock/mockgen -source=rate_limit.go -destination=../mocks/mock_rate_limit_repository.go -package=mocks
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"helpdesk_chat/pkg/logger"
)

// RateLimitRepository - счетчики фиксированного окна
type RateLimitRepository interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.redis.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		r.log.Error("Failed to check rate limit", "error", err)
		return false, err
	}

	return count < limit, nil
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err)
		return 0, err
	}

	// окно отсчитывается от первого события
	if count == 1 {
		if err := r.redis.Expire(ctx, key, window).Err(); err != nil {
			r.log.Warn("Failed to set rate limit window", "error", err, "key", key)
		}
	}

	return count, nil
}

// memoryRateLimitRepository - те же счетчики в памяти процесса, когда Redis выключен
type memoryRateLimitRepository struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

type windowCounter struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryRateLimitRepository() RateLimitRepository {
	return &memoryRateLimitRepository{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

func (r *memoryRateLimitRepository) CheckLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := r.live(key)
	if counter == nil {
		return true, nil
	}
	return counter.count < int64(limit), nil
}

func (r *memoryRateLimitRepository) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := r.live(key)
	if counter == nil {
		counter = &windowCounter{expiresAt: r.now().Add(window)}
		r.counters[key] = counter
	}
	counter.count++
	return counter.count, nil
}

// live возвращает счетчик ключа или nil, если окно истекло. Вызывать под mu.
func (r *memoryRateLimitRepository) live(key string) *windowCounter {
	counter, ok := r.counters[key]
	if !ok {
		return nil
	}
	if !r.now().Before(counter.expiresAt) {
		delete(r.counters, key)
		return nil
	}
	return counter
}
