package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"helpdesk_chat/internal/middleware"
	"helpdesk_chat/internal/service"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

// GetHistory - GET /history/:userId/:counterpartId
func (h *ChatHandler) GetHistory(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	userID, counterpartID, ok := h.pairParams(c)
	if !ok {
		return
	}

	messages, err := h.chatService.LoadHistory(c.Request.Context(), callerID, userID, counterpartID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// MarkRead - PATCH /read/:userId/:counterpartId
func (h *ChatHandler) MarkRead(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	userID, counterpartID, ok := h.pairParams(c)
	if !ok {
		return
	}

	count, err := h.chatService.MarkRead(c.Request.Context(), callerID, userID, counterpartID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Messages marked as read",
		"count":   count,
	})
}

// Search - GET /search/:userId?q=&limit=
func (h *ChatHandler) Search(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid user ID", apperrors.ErrBadRequest))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			_ = c.Error(fmt.Errorf("%w: invalid limit", apperrors.ErrBadRequest))
			return
		}
	}

	messages, err := h.chatService.Search(c.Request.Context(), callerID, userID, c.Query("q"), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Unread - GET /unread/:userId
func (h *ChatHandler) Unread(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid user ID", apperrors.ErrBadRequest))
		return
	}

	counts, err := h.chatService.UnreadCounts(c.Request.Context(), callerID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// Presence - GET /presence
func (h *ChatHandler) Presence(c *gin.Context) {
	callerID, ok := h.caller(c)
	if !ok {
		return
	}

	views, err := h.chatService.Presence(c.Request.Context(), callerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *ChatHandler) caller(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		_ = c.Error(fmt.Errorf("%w: user not authenticated", apperrors.ErrUnauthorized))
		return uuid.Nil, false
	}
	return userID, true
}

func (h *ChatHandler) pairParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid user ID", apperrors.ErrBadRequest))
		return uuid.Nil, uuid.Nil, false
	}
	counterpartID, err := uuid.Parse(c.Param("counterpartId"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid counterpart ID", apperrors.ErrBadRequest))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, counterpartID, true
}
