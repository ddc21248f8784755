package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/repository"
	"helpdesk_chat/internal/session"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

type SendCommand struct {
	Recipient       uuid.UUID
	Body            string
	TicketID        *uuid.UUID
	ClientMessageID string
}

// Ack - подтверждение отправителю: сообщение сохранено.
// Delivered=false значит, что получатель заберет его из истории.
type Ack struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	ClientMessageID string
	Delivered       bool
	Message         *domain.ChatMessage
}

// RelayService - сохранение сообщения и попытка доставки получателю
type RelayService interface {
	Send(ctx context.Context, sender *domain.SessionContext, cmd SendCommand) (*Ack, error)
}

type relayService struct {
	chatRepo  repository.ChatRepository
	registry  *presence.Registry
	rateLimit RateLimitService
	cfg       config.ChatConfig
	log       logger.Logger
}

func NewRelayService(chatRepo repository.ChatRepository, registry *presence.Registry, rateLimit RateLimitService, cfg config.ChatConfig, log logger.Logger) RelayService {
	return &relayService{
		chatRepo:  chatRepo,
		registry:  registry,
		rateLimit: rateLimit,
		cfg:       cfg,
		log:       log,
	}
}

func (s *relayService) Send(ctx context.Context, sender *domain.SessionContext, cmd SendCommand) (*Ack, error) {
	if err := s.validate(sender, cmd); err != nil {
		return nil, err
	}

	if !s.rateLimit.Allow(ctx, "chat:send:"+sender.UserID.String(), s.cfg.SendLimit, s.cfg.SendWindow) {
		return nil, fmt.Errorf("%w: too many messages", apperrors.ErrRateLimited)
	}

	message := &domain.ChatMessage{
		Sender:    sender.UserID,
		Recipient: cmd.Recipient,
		Body:      cmd.Body,
		TicketID:  cmd.TicketID,
	}

	// сначала сохранение: без него доставки нет
	if err := s.chatRepo.Create(ctx, message); err != nil {
		return nil, storeError("persist message", err)
	}

	ack := &Ack{
		ID:              message.ID,
		CreatedAt:       message.CreatedAt,
		ClientMessageID: cmd.ClientMessageID,
		Message:         message,
	}

	conn, ok := s.registry.Lookup(cmd.Recipient)
	if !ok {
		s.log.Debug("Recipient offline, message stored", "message_id", message.ID, "recipient", cmd.Recipient)
		return ack, nil
	}

	frame, err := session.Encode(session.EventPrivateMessage, session.NewMessagePayload(message, sender))
	if err != nil {
		s.log.Error("Failed to encode message", "error", err, "message_id", message.ID)
		return ack, nil
	}

	ack.Delivered = conn.Push(frame)
	if !ack.Delivered {
		s.log.Debug("Message push missed", "message_id", message.ID, "recipient", cmd.Recipient)
	}

	return ack, nil
}

func (s *relayService) validate(sender *domain.SessionContext, cmd SendCommand) error {
	if cmd.Recipient == uuid.Nil {
		return &ValidationError{Field: "recipient", Reason: "required"}
	}
	if cmd.Recipient == sender.UserID {
		return &ValidationError{Field: "recipient", Reason: "cannot message yourself"}
	}
	if strings.TrimSpace(cmd.Body) == "" {
		return &ValidationError{Field: "body", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(cmd.Body) > s.cfg.MaxBodyLength {
		return &ValidationError{Field: "body", Reason: fmt.Sprintf("exceeds %d characters", s.cfg.MaxBodyLength)}
	}
	return nil
}
