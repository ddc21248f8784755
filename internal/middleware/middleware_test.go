package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/mocks"
	"helpdesk_chat/internal/service"
	apperrors "helpdesk_chat/pkg/errors"
	"helpdesk_chat/pkg/jwt"
	"helpdesk_chat/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireAuth(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	userID := uuid.New()
	valid, err := jwt.GenerateAccessToken(userID, "HR", cfg.Secret, "", time.Minute)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", NewAuthMiddleware(cfg, logger.Nop()).RequireAuth(), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": c.GetString(ContextUserRole)})
	})

	cases := map[string]struct {
		header string
		status int
	}{
		"valid":      {header: "Bearer " + valid, status: http.StatusOK},
		"no header":  {header: "", status: http.StatusUnauthorized},
		"bad scheme": {header: "Token " + valid, status: http.StatusUnauthorized},
		"garbage":    {header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			req.Equal(tc.status, w.Code)
			if tc.status == http.StatusOK {
				req.JSONEq(fmt.Sprintf(`{"id":%q,"role":"HR"}`, userID), w.Body.String())
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest(http.MethodGet, "/ws/chat?token=q", nil)
	r.Header.Set("Authorization", "Bearer h")
	req.Equal("q", ExtractToken(r, "access_token"))

	r = httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	r.Header.Set("Authorization", "Bearer h")
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "c"})
	req.Equal("h", ExtractToken(r, "access_token"))

	r = httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "c"})
	req.Equal("c", ExtractToken(r, "access_token"))
	req.Empty(ExtractToken(r, ""))
}

func TestOriginAllowed(t *testing.T) {
	req := require.New(t)
	req.True(OriginAllowed([]string{"https://a"}, "https://a"))
	req.False(OriginAllowed([]string{"https://a"}, "https://b"))
	req.True(OriginAllowed([]string{"*"}, "https://b"))
	req.False(OriginAllowed([]string{"*"}, ""))
}

func TestErrorHandler_MapsErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(logger.Nop()))
	router.GET("/forbidden", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("%w: nope", apperrors.ErrForbidden))
	})
	router.GET("/store", func(c *gin.Context) {
		_ = c.Error(&service.StoreError{Op: "load", Err: fmt.Errorf("pq: secret detail")})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forbidden", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"error":"forbidden: nope"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/store", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "secret detail")
}

func TestRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	req := require.New(t)

	repo := mocks.NewMockRateLimitRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().CheckLimit(gomock.Any(), gomock.Any(), 2, time.Minute).Return(true, nil),
		repo.EXPECT().Increment(gomock.Any(), gomock.Any(), time.Minute).Return(int64(1), nil),
		repo.EXPECT().CheckLimit(gomock.Any(), gomock.Any(), 2, time.Minute).Return(false, nil),
	)

	limiter := NewRateLimitMiddleware(service.NewRateLimitService(repo, logger.Nop()), 2, time.Minute, logger.Nop())
	router := gin.New()
	router.GET("/x", limiter.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	req.Equal(http.StatusOK, w.Code)
	req.Equal("1", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	req.Equal(http.StatusTooManyRequests, w.Code)
}
