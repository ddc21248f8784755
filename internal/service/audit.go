package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/repository"
	"helpdesk_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorUserID *uuid.UUID, actorRole string, eventType string, payload map[string]interface{}) error
	// Record пишет событие и только логирует сбой: аудит не должен ломать чат
	Record(ctx context.Context, actorUserID *uuid.UUID, actorRole string, eventType string, payload map[string]interface{})
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actorUserID *uuid.UUID, actorRole string, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:   time.Now(),
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		EventType:   eventType,
		Payload:     payload,
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}

func (s *auditService) Record(ctx context.Context, actorUserID *uuid.UUID, actorRole string, eventType string, payload map[string]interface{}) {
	if err := s.LogEvent(ctx, actorUserID, actorRole, eventType, payload); err != nil {
		s.log.Warn("Failed to write audit log", "error", err, "event_type", eventType)
	}
}
