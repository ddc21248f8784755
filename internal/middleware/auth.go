package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/pkg/jwt"
	"helpdesk_chat/pkg/logger"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

type AuthMiddleware struct {
	cfg config.JWTConfig
	log logger.Logger
}

func NewAuthMiddleware(cfg config.JWTConfig, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		cfg: cfg,
		log: log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := jwt.ValidateToken(token, m.cfg.Secret, m.cfg.Issuer)
		if err != nil {
			m.log.Debug("Rejected access token", "error", err, "client_ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// UserID - идентификатор пользователя, положенный RequireAuth
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// ExtractToken ищет токен в query-параметре token, заголовке Authorization
// и cookie cookieName, в этом порядке. Браузерный WebSocket не умеет
// передавать заголовки, поэтому query и cookie нужны для рукопожатия.
func ExtractToken(r *http.Request, cookieName string) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			return cookie.Value
		}
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
