package service

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/mocks"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/session"
	"helpdesk_chat/pkg/logger"
)

// recordingConn - соединение в памяти, запоминающее отправленные кадры
type recordingConn struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: uuid.NewString()}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Push(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events возвращает полученные события по порядку
func (c *recordingConn) events(t *testing.T) []session.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Envelope, 0, len(c.frames))
	for _, frame := range c.frames {
		var env session.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

func (c *recordingConn) last(t *testing.T, event string) session.Envelope {
	t.Helper()
	events := c.events(t)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event == event {
			return events[i]
		}
	}
	t.Fatalf("event %q not received", event)
	return session.Envelope{}
}

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		MaxBodyLength: 20,
		SendBuffer:    8,
		SendLimit:     3,
		SendWindow:    time.Minute,
		TypingLimit:   2,
	}
}

func sessionFor(role domain.Role, name string) *domain.SessionContext {
	directoryRole := domain.DirectoryRoleEmployee
	if role == domain.RoleResponder {
		directoryRole = domain.DirectoryRoleHR
	}
	return &domain.SessionContext{
		SessionID:     uuid.New(),
		UserID:        uuid.New(),
		Role:          role,
		DirectoryRole: directoryRole,
		Name:          name,
		Department:    "Ops",
		ConnectedAt:   time.Now(),
	}
}

func register(registry *presence.Registry, sctx *domain.SessionContext) *recordingConn {
	conn := newRecordingConn()
	registry.Register(presence.Entry{
		UserID:     sctx.UserID,
		Role:       sctx.Role,
		Name:       sctx.Name,
		Department: sctx.Department,
		Conn:       conn,
	})
	return conn
}

// allowAll - лимитер, который ничего не ограничивает
func allowAll(ctrl *gomock.Controller) RateLimitService {
	repo := mocks.NewMockRateLimitRepository(ctrl)
	repo.EXPECT().Increment(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil).AnyTimes()
	return NewRateLimitService(repo, logger.Nop())
}

// nopAudit принимает любые записи аудита
func nopAudit(ctrl *gomock.Controller) AuditService {
	repo := mocks.NewMockAuditRepository(ctrl)
	repo.EXPECT().CreateLog(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return NewAuditService(repo, logger.Nop())
}
