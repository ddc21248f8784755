package repository

import (
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"helpdesk_chat/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Chat      ChatRepository
	Audit     AuditRepository
	RateLimit RateLimitRepository
	Stats     StatsRepository
}

// NewPostgresRepositories собирает хранилища поверх Postgres. rdb может
// быть nil: тогда справочник читается без кэша, а лимиты считаются в памяти.
func NewPostgresRepositories(db *pgxpool.Pool, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Repositories {
	return withRedis(&Repositories{
		User:  NewUserRepository(db, log),
		Chat:  NewChatRepository(db, log),
		Audit: NewAuditRepository(db, log),
		Stats: NewStatsRepository(db, log),
	}, rdb, cacheTTL, log)
}

// NewSQLiteRepositories - встраиваемый вариант для разработки и тестов
func NewSQLiteRepositories(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Repositories {
	return withRedis(&Repositories{
		User:  NewSQLiteUserRepository(db, log),
		Chat:  NewSQLiteChatRepository(db, log),
		Audit: NewSQLiteAuditRepository(db, log),
		Stats: NewSQLiteStatsRepository(db, log),
	}, rdb, cacheTTL, log)
}

func withRedis(repos *Repositories, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Repositories {
	if rdb == nil {
		log.Warn("Redis disabled, using in-memory rate limiter and uncached user directory")
		repos.RateLimit = NewMemoryRateLimitRepository()
		return repos
	}

	repos.User = NewCachedUserRepository(repos.User, rdb, cacheTTL, log)
	repos.RateLimit = NewRateLimitRepository(rdb, log)
	log.Info("Redis-backed rate limiter and user cache initialized")
	return repos
}
