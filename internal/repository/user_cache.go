package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/pkg/logger"
)

const (
	// Префикс ключа кэша профиля
	UserProfileKeyPrefix = "user:%s:profile"

	DefaultUserCacheTTL = 5 * time.Minute
)

// cachedUserRepository кэширует справочник в Redis. Ошибки Redis не
// ломают чтение: запрос уходит в основное хранилище.
type cachedUserRepository struct {
	next UserRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  logger.Logger
}

func NewCachedUserRepository(next UserRepository, rdb *redis.Client, ttl time.Duration, log logger.Logger) UserRepository {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &cachedUserRepository{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (r *cachedUserRepository) key(id uuid.UUID) string {
	return fmt.Sprintf(UserProfileKeyPrefix, id.String())
}

func (r *cachedUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	switch {
	case err == nil:
		user := &domain.User{}
		if jsonErr := json.Unmarshal(raw, user); jsonErr == nil {
			return user, nil
		}
		r.log.Warn("Corrupted user cache entry", "user_id", id)
	case !errors.Is(err, redis.Nil):
		r.log.Warn("Failed to read user cache", "error", err, "user_id", id)
	}

	user, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, user)
	return user, nil
}

func (r *cachedUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if err := r.next.Upsert(ctx, user); err != nil {
		return err
	}

	if err := r.rdb.Del(ctx, r.key(user.ID)).Err(); err != nil {
		r.log.Warn("Failed to invalidate user cache", "error", err, "user_id", user.ID)
	}
	return nil
}

func (r *cachedUserRepository) store(ctx context.Context, user *domain.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		r.log.Error("Failed to marshal user", "error", err)
		return
	}
	if err := r.rdb.Set(ctx, r.key(user.ID), raw, r.ttl).Err(); err != nil {
		r.log.Warn("Failed to write user cache", "error", err, "user_id", user.ID)
	}
}
