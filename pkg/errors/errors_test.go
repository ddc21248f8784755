package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"wrapped token expired", fmt.Errorf("handshake: %w", ErrTokenExpired), http.StatusUnauthorized},
		{"unknown user", ErrUserNotFound, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"wrapped bad request", fmt.Errorf("%w: body is empty", ErrBadRequest), http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"api error keeps its code", NewAPIError("conflict", http.StatusConflict), http.StatusConflict},
		{"store failure", fmt.Errorf("%w: insert", ErrStore), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatusFromError(tt.err))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	req := require.New(t)
	req.True(IsAuthError(fmt.Errorf("ws: %w", ErrInvalidToken)))
	req.True(IsAuthError(ErrUnauthorized))
	req.False(IsAuthError(ErrForbidden))
	req.False(IsAuthError(nil))
}
