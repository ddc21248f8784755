package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/repository"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

// ChatService - REST-часть чата: история, прочтение, поиск, счетчики.
// callerID - пользователь из токена запроса.
type ChatService interface {
	LoadHistory(ctx context.Context, callerID, userID, counterpartID uuid.UUID) ([]*domain.ChatMessage, error)
	MarkRead(ctx context.Context, callerID, userID, counterpartID uuid.UUID) (int64, error)
	Search(ctx context.Context, callerID, userID uuid.UUID, term string, limit int) ([]*domain.ChatMessage, error)
	UnreadCounts(ctx context.Context, callerID, userID uuid.UUID) (map[uuid.UUID]int64, error)
	Presence(ctx context.Context, callerID uuid.UUID) ([]domain.ActiveUserView, error)
}

type chatService struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	registry    *presence.Registry
	broadcaster BroadcastService
	audit       AuditService
	log         logger.Logger
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, registry *presence.Registry, broadcaster BroadcastService, audit AuditService, log logger.Logger) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		registry:    registry,
		broadcaster: broadcaster,
		audit:       audit,
		log:         log,
	}
}

func (s *chatService) LoadHistory(ctx context.Context, callerID, userID, counterpartID uuid.UUID) ([]*domain.ChatMessage, error) {
	if err := s.authorizeViewer(ctx, callerID, userID); err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.GetConversation(ctx, userID, counterpartID)
	if err != nil {
		return nil, storeError("load history", err)
	}

	// хранилище уже упорядочивает; повтор id здесь означал бы сбой выборки
	return lo.UniqBy(messages, func(m *domain.ChatMessage) uuid.UUID { return m.ID }), nil
}

func (s *chatService) MarkRead(ctx context.Context, callerID, userID, counterpartID uuid.UUID) (int64, error) {
	if callerID != userID {
		return 0, fmt.Errorf("%w: can only mark own messages as read", apperrors.ErrForbidden)
	}

	count, err := s.chatRepo.MarkRead(ctx, userID, counterpartID)
	if err != nil {
		return 0, storeError("mark read", err)
	}

	if count > 0 {
		s.broadcaster.NotifyRead(userID, counterpartID, count)
		s.audit.Record(ctx, &userID, domain.ActorRoleUser, domain.EventTypeChatMessagesRead, map[string]interface{}{
			"counterpart_id": counterpartID.String(),
			"count":          count,
		})
	}

	return count, nil
}

func (s *chatService) Search(ctx context.Context, callerID, userID uuid.UUID, term string, limit int) ([]*domain.ChatMessage, error) {
	if err := s.authorizeViewer(ctx, callerID, userID); err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &ValidationError{Field: "q", Reason: "must not be empty"}
	}

	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	if limit > domain.MaxSearchLimit {
		limit = domain.MaxSearchLimit
	}

	messages, err := s.chatRepo.Search(ctx, userID, term, limit)
	if err != nil {
		return nil, storeError("search messages", err)
	}
	return messages, nil
}

func (s *chatService) UnreadCounts(ctx context.Context, callerID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	if err := s.authorizeViewer(ctx, callerID, userID); err != nil {
		return nil, err
	}

	counts, err := s.chatRepo.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, storeError("count unread", err)
	}

	return lo.SliceToMap(counts, func(c domain.UnreadCount) (uuid.UUID, int64) {
		return c.Sender, c.Count
	}), nil
}

func (s *chatService) Presence(ctx context.Context, callerID uuid.UUID) ([]domain.ActiveUserView, error) {
	user, err := s.loadCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	role, err := domain.RoleFromDirectory(user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrForbidden, err)
	}

	return s.registry.Snapshot(role), nil
}

// authorizeViewer пускает к переписке userID самого пользователя и администратора
func (s *chatService) authorizeViewer(ctx context.Context, callerID, userID uuid.UUID) error {
	if callerID == userID {
		return nil
	}

	caller, err := s.loadCaller(ctx, callerID)
	if err != nil {
		return err
	}

	if caller.Role != domain.DirectoryRoleAdmin {
		return fmt.Errorf("%w: not allowed to view this conversation", apperrors.ErrForbidden)
	}
	return nil
}

func (s *chatService) loadCaller(ctx context.Context, callerID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, storeError("load user", err)
	}
	return user, nil
}
