package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"helpdesk_chat/internal/domain"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

type sqliteUserRepository struct {
	db  *sql.DB
	log logger.Logger
}

func NewSQLiteUserRepository(db *sql.DB, log logger.Logger) UserRepository {
	return &sqliteUserRepository{db: db, log: log}
}

func (r *sqliteUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT name, email, role, department FROM users WHERE id = ?`

	user := &domain.User{ID: id}
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&user.Name, &user.Email, &user.Role, &user.Department,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by ID", "error", err)
		return nil, err
	}

	return user, nil
}

func (r *sqliteUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, role, department)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE
		SET name = excluded.name, email = excluded.email,
		    role = excluded.role, department = excluded.department
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID.String(), user.Name, user.Email, user.Role, user.Department,
	)
	if err != nil {
		r.log.Error("Failed to upsert user", "error", err, "user_id", user.ID)
		return err
	}

	return nil
}
