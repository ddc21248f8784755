package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/pkg/logger"
)

// StatsRepository считает агрегаты по таблице сообщений.
// Connected заполняет сервис из реестра присутствия.
type StatsRepository interface {
	GetChatStats(ctx context.Context, since time.Time) (*domain.ChatStats, error)
}

type statsRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewStatsRepository(db *pgxpool.Pool, log logger.Logger) StatsRepository {
	return &statsRepository{db: db, log: log}
}

func (r *statsRepository) GetChatStats(ctx context.Context, since time.Time) (*domain.ChatStats, error) {
	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE NOT is_read),
		       count(*) FILTER (WHERE created_at >= $1)
		FROM chat_messages
	`

	stats := &domain.ChatStats{Since: since}
	err := r.db.QueryRow(ctx, query, since).Scan(&stats.TotalMessages, &stats.UnreadMessages, &stats.RecentMessages)
	if err != nil {
		r.log.Error("Failed to get chat stats", "error", err)
		return nil, err
	}

	return stats, nil
}

type sqliteStatsRepository struct {
	db  *sql.DB
	log logger.Logger
}

func NewSQLiteStatsRepository(db *sql.DB, log logger.Logger) StatsRepository {
	return &sqliteStatsRepository{db: db, log: log}
}

func (r *sqliteStatsRepository) GetChatStats(ctx context.Context, since time.Time) (*domain.ChatStats, error) {
	query := `
		SELECT count(*),
		       COALESCE(sum(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(sum(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM chat_messages
	`

	stats := &domain.ChatStats{Since: since}
	err := r.db.QueryRowContext(ctx, query, since.UTC().UnixNano()).Scan(&stats.TotalMessages, &stats.UnreadMessages, &stats.RecentMessages)
	if err != nil {
		r.log.Error("Failed to get chat stats", "error", err)
		return nil, err
	}

	return stats, nil
}
