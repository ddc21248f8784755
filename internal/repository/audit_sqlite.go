package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"helpdesk_chat/internal/domain"
	"helpdesk_chat/pkg/logger"
)

type sqliteAuditRepository struct {
	db  *sql.DB
	log logger.Logger
}

func NewSQLiteAuditRepository(db *sql.DB, log logger.Logger) AuditRepository {
	return &sqliteAuditRepository{db: db, log: log}
}

func (r *sqliteAuditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	payload := auditLog.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	var actor sql.NullString
	if auditLog.ActorUserID != nil {
		actor = sql.NullString{String: auditLog.ActorUserID.String(), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_audit_log (event_time, actor_user_id, actor_role, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`, auditLog.EventTime.UnixNano(), actor, auditLog.ActorRole, auditLog.EventType, string(raw))
	if err != nil {
		r.log.Error("Failed to create audit log", "error", err, "event_type", auditLog.EventType)
		return err
	}

	auditLog.ID, err = result.LastInsertId()
	return err
}
