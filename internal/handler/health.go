package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/presence"
)

// HealthCheck проверяет одну зависимость (база, Redis)
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks   map[string]HealthCheck
	registry *presence.Registry
}

func NewHealthHandler(checks map[string]HealthCheck, registry *presence.Registry) *HealthHandler {
	return &HealthHandler{
		checks:   checks,
		registry: registry,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	counts := h.registry.Count()
	body := gin.H{
		"status":       "ok",
		"service":      "helpdesk-chat",
		"dependencies": deps,
		"connected": gin.H{
			domain.RoleRequester.Label(): counts[domain.RoleRequester],
			domain.RoleResponder.Label(): counts[domain.RoleResponder],
		},
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	c.JSON(status, body)
}
