package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(DriverPostgres, cfg.Database.Driver)
	req.Equal(4000, cfg.Chat.MaxBodyLength)
	req.Equal(64, cfg.Chat.SendBuffer)
	req.EqualValues(8*1024, cfg.Chat.MaxFrameBytes)
	req.Equal(10*time.Second, cfg.Chat.SendWindow)
	req.Equal("access_token", cfg.JWT.CookieName)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", DriverSQLite)
	t.Setenv("DATABASE_SQLITE_PATH", "/tmp/chat.db")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("CHAT_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CHAT_SEND_WINDOW", "1m")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(DriverSQLite, cfg.Database.Driver)
	req.False(cfg.Redis.Enabled)
	req.Equal([]string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	req.Equal(time.Minute, cfg.Chat.SendWindow)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_ACCESS_SECRET", "")
		_, err := Load()
		require.ErrorContains(t, err, "JWT secret")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_ACCESS_SECRET", "secret")
		t.Setenv("DATABASE_DRIVER", "mysql")
		_, err := Load()
		require.ErrorContains(t, err, "unsupported database driver")
	})
}
