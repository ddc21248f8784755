package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"helpdesk_chat/internal/middleware"
	"helpdesk_chat/internal/service"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/logger"
)

type StatsHandler struct {
	statsService service.StatsService
	log          logger.Logger
}

func NewStatsHandler(statsService service.StatsService, log logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		log:          log,
	}
}

// GetChatStats - GET /api/v1/chat/stats, только для Admin
func (h *StatsHandler) GetChatStats(c *gin.Context) {
	callerID, ok := middleware.UserID(c)
	if !ok {
		_ = c.Error(fmt.Errorf("%w: user not authenticated", apperrors.ErrUnauthorized))
		return
	}

	stats, err := h.statsService.GetChatStats(c.Request.Context(), callerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
