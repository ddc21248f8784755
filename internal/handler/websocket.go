package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/middleware"
	"helpdesk_chat/internal/service"
	"helpdesk_chat/internal/session"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

type WebSocketHandler struct {
	gateway     service.GatewayService
	relay       service.RelayService
	broadcaster service.BroadcastService
	upgrader    websocket.Upgrader
	validate    *validator.Validate
	cfg         *config.Config
	log         logger.Logger
}

func NewWebSocketHandler(services *service.Services, cfg *config.Config, log logger.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		gateway:     services.Gateway,
		relay:       services.Relay,
		broadcaster: services.Broadcast,
		validate:    validator.New(),
		cfg:         cfg,
		log:         log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// не-браузерные клиенты Origin не присылают
			return origin == "" || middleware.OriginAllowed(cfg.Server.AllowedOrigins, origin)
		},
	}
	return h
}

// HandleChat - GET /ws/chat. Токен проверяется до апгрейда: отказ - обычный 401.
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	token := middleware.ExtractToken(c.Request, h.cfg.JWT.CookieName)
	sctx, err := h.gateway.Authenticate(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		status := apperrors.HTTPStatusFromError(err)
		message := "authentication failed"
		if status >= http.StatusInternalServerError {
			h.log.Error("Chat handshake failed", "error", err)
			message = "Internal server error"
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "error", err, "user_id", sctx.UserID)
		return
	}

	client := session.NewClient(conn, h.cfg.Chat.SendBuffer, h.cfg.Chat.MaxFrameBytes,
		h.log.With("user_id", sctx.UserID, "session_id", sctx.SessionID))

	// запрос уже апгрейднут: его контекст не должен обрывать запись при отключении
	ctx := context.WithoutCancel(c.Request.Context())

	h.gateway.Connect(ctx, sctx, client)
	go client.WritePump()

	client.ReadPump(func(env session.Envelope) {
		h.dispatch(ctx, sctx, client, env)
	})

	h.gateway.Disconnect(ctx, sctx, client)
}

func (h *WebSocketHandler) dispatch(ctx context.Context, sctx *domain.SessionContext, client *session.Client, env session.Envelope) {
	switch env.Event {
	case session.EventPrivateMessage:
		var req session.PrivateMessageRequest
		if !h.decode(client, env, &req) {
			return
		}
		h.sendMessage(ctx, sctx, client, req)

	case session.EventTyping:
		var req session.TypingRequest
		if !h.decode(client, env, &req) {
			return
		}
		h.broadcaster.NotifyTyping(ctx, sctx, req.Recipient, req.IsTyping)

	default:
		client.PushError(session.ErrorPayload{
			Event:   env.Event,
			Code:    session.CodeBadRequest,
			Message: "unknown event",
		})
	}
}

func (h *WebSocketHandler) sendMessage(ctx context.Context, sctx *domain.SessionContext, client *session.Client, req session.PrivateMessageRequest) {
	ack, err := h.relay.Send(ctx, sctx, service.SendCommand{
		Recipient:       req.Recipient,
		Body:            req.Body,
		TicketID:        req.TicketID,
		ClientMessageID: req.ClientMessageID,
	})
	if err != nil {
		code, message := errorCode(err)
		if code == session.CodeStoreError || code == session.CodeInternal {
			h.log.Error("Failed to send message", "error", err, "user_id", sctx.UserID)
		}
		client.PushError(session.ErrorPayload{
			Event:           session.EventPrivateMessage,
			Code:            code,
			Message:         message,
			ClientMessageID: req.ClientMessageID,
		})
		return
	}

	frame, err := session.Encode(session.EventPrivateMessageAck, session.AckPayload{
		MessagePayload:  session.NewMessagePayload(ack.Message, sctx),
		ClientMessageID: ack.ClientMessageID,
		Delivered:       ack.Delivered,
	})
	if err != nil {
		h.log.Error("Failed to encode ack", "error", err)
		return
	}
	client.Push(frame)
}

func (h *WebSocketHandler) decode(client *session.Client, env session.Envelope, dst any) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		client.PushError(session.ErrorPayload{Event: env.Event, Code: session.CodeBadRequest, Message: "invalid payload"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		client.PushError(session.ErrorPayload{Event: env.Event, Code: session.CodeBadRequest, Message: err.Error()})
		return false
	}
	return true
}

// errorCode сопоставляет ошибку коду события error; причины сбоев хранилища наружу не уходят
func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, apperrors.ErrBadRequest):
		return session.CodeBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrRateLimited):
		return session.CodeRateLimited, err.Error()
	case errors.Is(err, apperrors.ErrStore):
		return session.CodeStoreError, "failed to store message"
	default:
		return session.CodeInternal, "internal error"
	}
}
