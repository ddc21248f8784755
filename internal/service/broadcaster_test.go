package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/mocks"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/session"
	"helpdesk_chat/pkg/logger"
)

func TestBroadcastService_NotifyTyping(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("delivers to present target only", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		b := NewBroadcastService(registry, allowAll(ctrl), testChatConfig(), logger.Nop())

		emp := sessionFor(domain.RoleRequester, "Egor")
		hr := sessionFor(domain.RoleResponder, "Hanna")
		hrConn := register(registry, hr)

		b.NotifyTyping(context.Background(), emp, hr.UserID, true)
		b.NotifyTyping(context.Background(), emp, uuid.New(), true)

		events := hrConn.events(t)
		req.Len(events, 1)
		req.Equal(session.EventTyping, events[0].Event)
		var payload session.TypingPayload
		req.NoError(json.Unmarshal(events[0].Data, &payload))
		req.Equal(emp.UserID, payload.Sender)
		req.True(payload.IsTyping)
	})

	t.Run("rate limited typing is dropped silently", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		limiter := NewRateLimitService(repositoryWithCounts(ctrl, 1, 2, 3), logger.Nop())
		b := NewBroadcastService(registry, limiter, testChatConfig(), logger.Nop())

		emp := sessionFor(domain.RoleRequester, "Egor")
		hr := sessionFor(domain.RoleResponder, "Hanna")
		hrConn := register(registry, hr)

		for i := 0; i < 3; i++ {
			b.NotifyTyping(context.Background(), emp, hr.UserID, i%2 == 0)
		}

		// лимит набора текста в тестовой конфигурации - 2 события
		req.Len(hrConn.events(t), 2)
	})
}

// repositoryWithCounts возвращает счетчик, отдающий counts по очереди
func repositoryWithCounts(ctrl *gomock.Controller, counts ...int64) *mocks.MockRateLimitRepository {
	repo := mocks.NewMockRateLimitRepository(ctrl)
	next := 0
	repo.EXPECT().
		Increment(gomock.Any(), gomock.Any(), time.Minute).
		DoAndReturn(func(context.Context, string, time.Duration) (int64, error) {
			n := counts[next]
			next++
			return n, nil
		}).
		Times(len(counts))
	return repo
}

func TestBroadcastService_BroadcastPresence(t *testing.T) {
	ctrl := gomock.NewController(t)
	req := require.New(t)
	registry := presence.NewRegistry()
	b := NewBroadcastService(registry, allowAll(ctrl), testChatConfig(), logger.Nop())

	emp1 := register(registry, sessionFor(domain.RoleRequester, "Egor"))
	emp2 := register(registry, sessionFor(domain.RoleRequester, "Anna"))
	hr := sessionFor(domain.RoleResponder, "Hanna")
	hrConn := register(registry, hr)
	// закрытый участник пропускается, остальным рассылка доходит
	emp2.Close()

	b.BroadcastPresence(domain.RoleRequester)

	req.Empty(hrConn.events(t))
	env := emp1.last(t, "active_hr_users")
	var views []domain.ActiveUserView
	req.NoError(json.Unmarshal(env.Data, &views))
	req.Len(views, 1)
	req.Equal(hr.UserID, views[0].ID)
	req.Empty(emp2.events(t))
}

// gatedConn задерживает первую отправку, пока не откроют gate
type gatedConn struct {
	*recordingConn
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func newGatedConn() *gatedConn {
	return &gatedConn{
		recordingConn: newRecordingConn(),
		entered:       make(chan struct{}),
		gate:          make(chan struct{}),
	}
}

func (c *gatedConn) Push(frame []byte) bool {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.gate
	}
	return c.recordingConn.Push(frame)
}

func TestBroadcastService_BroadcastPresence_LatestSnapshotArrivesLast(t *testing.T) {
	ctrl := gomock.NewController(t)
	req := require.New(t)
	registry := presence.NewRegistry()
	b := NewBroadcastService(registry, allowAll(ctrl), testChatConfig(), logger.Nop())

	alice := sessionFor(domain.RoleRequester, "Alice")
	aliceConn := register(registry, alice)
	hr := sessionFor(domain.RoleResponder, "Hanna")
	hrConn := newGatedConn()
	registry.Register(presence.Entry{UserID: hr.UserID, Role: hr.Role, Name: hr.Name, Conn: hrConn})

	// Given a broadcast that built its snapshot with Alice online and is stuck pushing it
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.BroadcastPresence(domain.RoleResponder)
	}()
	<-hrConn.entered

	// When Alice disconnects and a second broadcast starts
	req.True(registry.Release(alice.UserID, aliceConn))
	go func() {
		defer wg.Done()
		b.BroadcastPresence(domain.RoleResponder)
	}()
	time.Sleep(20 * time.Millisecond)
	close(hrConn.gate)
	wg.Wait()

	// Then the last frame HR holds is the fresh one
	events := hrConn.events(t)
	req.Len(events, 2)
	var views []domain.ActiveUserView
	req.NoError(json.Unmarshal(hrConn.last(t, "active_employee_users").Data, &views))
	req.Empty(views)
	req.Zero(registry.Count()[domain.RoleRequester])
}

func TestBroadcastService_NotifyRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	req := require.New(t)
	registry := presence.NewRegistry()
	b := NewBroadcastService(registry, allowAll(ctrl), testChatConfig(), logger.Nop())

	emp := sessionFor(domain.RoleRequester, "Egor")
	hr := sessionFor(domain.RoleResponder, "Hanna")
	hrConn := register(registry, hr)

	b.NotifyRead(emp.UserID, hr.UserID, 0)
	req.Empty(hrConn.events(t))

	b.NotifyRead(emp.UserID, hr.UserID, 3)
	var payload session.ReadPayload
	req.NoError(json.Unmarshal(hrConn.last(t, session.EventMessagesRead).Data, &payload))
	req.Equal(emp.UserID, payload.Reader)
	req.EqualValues(3, payload.Count)
}
