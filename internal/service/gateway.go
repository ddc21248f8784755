package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/repository"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/jwt"
	"helpdesk_chat/pkg/logger"
)

// GatewayService - вход в чат: проверка токена, регистрация соединения
// в реестре присутствия и его снятие
type GatewayService interface {
	Authenticate(ctx context.Context, token, remoteAddr string) (*domain.SessionContext, error)
	Connect(ctx context.Context, sctx *domain.SessionContext, conn presence.Conn)
	Disconnect(ctx context.Context, sctx *domain.SessionContext, conn presence.Conn)
}

type gatewayService struct {
	userRepo    repository.UserRepository
	registry    *presence.Registry
	broadcaster BroadcastService
	audit       AuditService
	cfg         config.JWTConfig
	log         logger.Logger
}

func NewGatewayService(userRepo repository.UserRepository, registry *presence.Registry, broadcaster BroadcastService, audit AuditService, cfg config.JWTConfig, log logger.Logger) GatewayService {
	return &gatewayService{
		userRepo:    userRepo,
		registry:    registry,
		broadcaster: broadcaster,
		audit:       audit,
		cfg:         cfg,
		log:         log,
	}
}

func (s *gatewayService) Authenticate(ctx context.Context, token, remoteAddr string) (*domain.SessionContext, error) {
	sctx, err := s.authenticate(ctx, token, remoteAddr)
	if err != nil && apperrors.IsAuthError(err) {
		payload := map[string]interface{}{"reason": err.Error(), "remote_addr": remoteAddr}
		s.audit.Record(ctx, nil, domain.ActorRoleSystem, domain.EventTypeChatAuthFailed, payload)
		s.log.Info("Chat authentication failed", "reason", err.Error(), "remote_addr", remoteAddr)
	}
	return sctx, err
}

func (s *gatewayService) authenticate(ctx context.Context, token, remoteAddr string) (*domain.SessionContext, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", apperrors.ErrUnauthorized)
	}

	claims, err := jwt.ValidateToken(token, s.cfg.Secret, s.cfg.Issuer)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, storeError("load user", err)
	}

	// роль берется из справочника, а не из токена
	role, err := domain.RoleFromDirectory(user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	return &domain.SessionContext{
		SessionID:     uuid.New(),
		UserID:        user.ID,
		Role:          role,
		DirectoryRole: user.Role,
		Name:          user.Name,
		Department:    user.Department,
		RemoteAddr:    remoteAddr,
		ConnectedAt:   time.Now(),
	}, nil
}

func (s *gatewayService) Connect(ctx context.Context, sctx *domain.SessionContext, conn presence.Conn) {
	superseded, ok := s.registry.Register(presence.Entry{
		UserID:      sctx.UserID,
		Role:        sctx.Role,
		Name:        sctx.Name,
		Department:  sctx.Department,
		Conn:        conn,
		ConnectedAt: sctx.ConnectedAt,
	})

	if ok {
		superseded.Conn.Close()
		s.audit.Record(ctx, &sctx.UserID, sctx.DirectoryRole, domain.EventTypeChatSuperseded, map[string]interface{}{
			"conn_id": superseded.Conn.ID(),
		})
		s.log.Info("Previous chat connection superseded", "user_id", sctx.UserID, "conn_id", superseded.Conn.ID())
	}

	s.audit.Record(ctx, &sctx.UserID, sctx.DirectoryRole, domain.EventTypeChatConnected, map[string]interface{}{
		"session_id":  sctx.SessionID.String(),
		"conn_id":     conn.ID(),
		"remote_addr": sctx.RemoteAddr,
	})
	s.log.Info("Chat user connected", "user_id", sctx.UserID, "role", sctx.Role, "conn_id", conn.ID())

	s.broadcaster.SendSnapshot(conn, sctx.Role)
	s.broadcaster.BroadcastPresence(sctx.Role.Counterpart())

	// роль в справочнике сменилась: прежние зрители должны увидеть пользователя ушедшим
	if ok && superseded.Role != sctx.Role {
		s.broadcaster.BroadcastPresence(superseded.Role.Counterpart())
	}
}

func (s *gatewayService) Disconnect(ctx context.Context, sctx *domain.SessionContext, conn presence.Conn) {
	if !s.registry.Release(sctx.UserID, conn) {
		// запись уже принадлежит более новому соединению
		s.log.Debug("Stale chat connection closed", "user_id", sctx.UserID, "conn_id", conn.ID())
		return
	}

	s.audit.Record(ctx, &sctx.UserID, sctx.DirectoryRole, domain.EventTypeChatDisconnected, map[string]interface{}{
		"session_id": sctx.SessionID.String(),
		"conn_id":    conn.ID(),
		"duration":   time.Since(sctx.ConnectedAt).String(),
	})
	s.log.Info("Chat user disconnected", "user_id", sctx.UserID, "conn_id", conn.ID())

	s.broadcaster.BroadcastPresence(sctx.Role.Counterpart())
}
