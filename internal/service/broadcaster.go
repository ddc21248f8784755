package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/session"
	"helpdesk_chat/pkg/logger"
)

// BroadcastService рассылает эфемерные сигналы: набор текста, присутствие,
// прочтение. Ничего не сохраняет и не повторяет.
type BroadcastService interface {
	NotifyTyping(ctx context.Context, from *domain.SessionContext, to uuid.UUID, isTyping bool)
	// BroadcastPresence отправляет каждому участнику роли audience снапшот противоположной роли
	BroadcastPresence(audience domain.Role)
	SendSnapshot(conn presence.Conn, viewer domain.Role)
	NotifyRead(reader, counterpart uuid.UUID, count int64)
}

type broadcastService struct {
	registry  *presence.Registry
	rateLimit RateLimitService
	cfg       config.ChatConfig
	log       logger.Logger

	// presenceMu упорядочивает снапшоты: кадр, собранный позже, и в очередь
	// попадает позже
	presenceMu sync.Mutex
}

func NewBroadcastService(registry *presence.Registry, rateLimit RateLimitService, cfg config.ChatConfig, log logger.Logger) BroadcastService {
	return &broadcastService{
		registry:  registry,
		rateLimit: rateLimit,
		cfg:       cfg,
		log:       log,
	}
}

func (s *broadcastService) NotifyTyping(ctx context.Context, from *domain.SessionContext, to uuid.UUID, isTyping bool) {
	if !s.rateLimit.Allow(ctx, "chat:typing:"+from.UserID.String(), s.cfg.TypingLimit, s.cfg.SendWindow) {
		s.log.Debug("Typing event rate limited", "user_id", from.UserID)
		return
	}

	conn, ok := s.registry.Lookup(to)
	if !ok {
		return
	}

	s.push(conn, to, session.EventTyping, session.TypingPayload{Sender: from.UserID, IsTyping: isTyping})
}

func (s *broadcastService) BroadcastPresence(audience domain.Role) {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	frame, err := session.Encode(session.PresenceEvent(audience), s.registry.Snapshot(audience))
	if err != nil {
		s.log.Error("Failed to encode presence snapshot", "error", err)
		return
	}

	for _, member := range s.registry.Members(audience) {
		if !member.Conn.Push(frame) {
			// участник мог отключиться между выборкой и отправкой
			s.log.Debug("Presence push missed", "user_id", member.UserID)
		}
	}
}

func (s *broadcastService) SendSnapshot(conn presence.Conn, viewer domain.Role) {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()

	frame, err := session.Encode(session.PresenceEvent(viewer), s.registry.Snapshot(viewer))
	if err != nil {
		s.log.Error("Failed to encode presence snapshot", "error", err)
		return
	}
	if !conn.Push(frame) {
		s.log.Debug("Snapshot push missed", "conn_id", conn.ID())
	}
}

func (s *broadcastService) NotifyRead(reader, counterpart uuid.UUID, count int64) {
	if count <= 0 {
		return
	}
	conn, ok := s.registry.Lookup(counterpart)
	if !ok {
		return
	}
	s.push(conn, counterpart, session.EventMessagesRead, session.ReadPayload{Reader: reader, Count: count})
}

func (s *broadcastService) push(conn presence.Conn, to uuid.UUID, event string, data any) {
	frame, err := session.Encode(event, data)
	if err != nil {
		s.log.Error("Failed to encode event", "error", err, "event", event)
		return
	}
	if !conn.Push(frame) {
		s.log.Debug("Push missed", "event", event, "user_id", to)
	}
}
