package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"helpdesk_chat/internal/domain"
)

type fakeConn struct {
	id     string
	closed bool
}

func (c *fakeConn) ID() string            { return c.id }
func (c *fakeConn) Push(frame []byte) bool { return !c.closed }
func (c *fakeConn) Close()                { c.closed = true }

func entryFor(userID uuid.UUID, role domain.Role, name string) Entry {
	return Entry{
		UserID: userID,
		Role:   role,
		Name:   name,
		Conn:   &fakeConn{id: uuid.NewString()},
	}
}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := entryFor(uuid.New(), domain.RoleRequester, "Alice")

	// Given nobody is connected
	_, ok := registry.Lookup(alice.UserID)
	req.False(ok)

	// When Alice registers
	superseded, replaced := registry.Register(alice)

	// Then she can be looked up and nothing was superseded
	req.False(replaced)
	req.Nil(superseded.Conn)
	conn, ok := registry.Lookup(alice.UserID)
	req.True(ok)
	req.Equal(alice.Conn, conn)
}

func TestRegistry_Register_SupersedesPreviousConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.New()
	first := entryFor(userID, domain.RoleRequester, "Alice")
	second := entryFor(userID, domain.RoleRequester, "Alice")

	registry.Register(first)
	superseded, replaced := registry.Register(second)

	req.True(replaced)
	req.Equal(first.Conn, superseded.Conn)
	req.Equal(domain.RoleRequester, superseded.Role)

	conn, ok := registry.Lookup(userID)
	req.True(ok)
	req.Equal(second.Conn, conn)

	// Only the latest connection appears in the counterpart's snapshot
	req.Len(registry.Snapshot(domain.RoleResponder), 1)
}

func TestRegistry_Register_SameConnectionTwice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := entryFor(uuid.New(), domain.RoleRequester, "Alice")

	registry.Register(alice)
	superseded, replaced := registry.Register(alice)

	req.False(replaced)
	req.Nil(superseded.Conn)
}

func TestRegistry_Register_RoleChangeMovesIndex(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.New()

	registry.Register(entryFor(userID, domain.RoleRequester, "Sam"))
	registry.Register(entryFor(userID, domain.RoleResponder, "Sam"))

	req.Empty(registry.Members(domain.RoleRequester))
	req.Len(registry.Members(domain.RoleResponder), 1)
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := entryFor(uuid.New(), domain.RoleRequester, "Alice")
	registry.Register(alice)

	// When Alice unregisters
	registry.Unregister(alice.UserID)

	// Then the next responder snapshot does not include her
	req.Empty(registry.Snapshot(domain.RoleResponder))
	_, ok := registry.Lookup(alice.UserID)
	req.False(ok)

	// And a second unregister is a no-op
	registry.Unregister(alice.UserID)
}

func TestRegistry_Release_OnlyRemovesOwnConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.New()
	stale := entryFor(userID, domain.RoleRequester, "Alice")
	fresh := entryFor(userID, domain.RoleRequester, "Alice")

	// Given Alice reconnected from a second session
	registry.Register(stale)
	registry.Register(fresh)

	// When the stale connection goes away
	released := registry.Release(userID, stale.Conn)

	// Then the fresh entry survives
	req.False(released)
	conn, ok := registry.Lookup(userID)
	req.True(ok)
	req.Equal(fresh.Conn, conn)

	// And releasing the fresh one removes it
	req.True(registry.Release(userID, fresh.Conn))
	_, ok = registry.Lookup(userID)
	req.False(ok)
}

func TestRegistry_Snapshot_IsRolePartitioned(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := entryFor(uuid.New(), domain.RoleRequester, "Alice")
	carl := entryFor(uuid.New(), domain.RoleRequester, "Carl")
	bob := entryFor(uuid.New(), domain.RoleResponder, "Bob")
	bob.Department = "People Ops"

	registry.Register(carl)
	registry.Register(bob)
	registry.Register(alice)

	requesterView := registry.Snapshot(domain.RoleRequester)
	req.Equal([]domain.ActiveUserView{{ID: bob.UserID, Name: "Bob", Department: "People Ops"}}, requesterView)

	responderView := registry.Snapshot(domain.RoleResponder)
	req.Len(responderView, 2)
	req.Equal("Alice", responderView[0].Name)
	req.Equal("Carl", responderView[1].Name)
	for _, view := range responderView {
		req.NotEqual(bob.UserID, view.ID)
	}
}

func TestRegistry_Snapshot_IsACopy(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	bob := entryFor(uuid.New(), domain.RoleResponder, "Bob")
	registry.Register(bob)

	snapshot := registry.Snapshot(domain.RoleRequester)
	registry.Unregister(bob.UserID)

	req.Len(snapshot, 1)
	req.Empty(registry.Snapshot(domain.RoleRequester))
}

func TestRegistry_Count(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register(entryFor(uuid.New(), domain.RoleRequester, "A"))
	registry.Register(entryFor(uuid.New(), domain.RoleRequester, "B"))
	registry.Register(entryFor(uuid.New(), domain.RoleResponder, "C"))

	counts := registry.Count()
	req.Equal(2, counts[domain.RoleRequester])
	req.Equal(1, counts[domain.RoleResponder])
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := domain.RoleRequester
			if i%2 == 0 {
				role = domain.RoleResponder
			}
			entry := entryFor(uuid.New(), role, fmt.Sprintf("user-%02d", i))
			for j := 0; j < 50; j++ {
				registry.Register(entry)
				_ = registry.Snapshot(role)
				_, _ = registry.Lookup(entry.UserID)
				registry.Release(entry.UserID, entry.Conn)
			}
			registry.Register(entry)
		}(i)
	}
	wg.Wait()

	counts := registry.Count()
	req.Equal(workers/2, counts[domain.RoleRequester])
	req.Equal(workers/2, counts[domain.RoleResponder])
	req.Len(registry.Snapshot(domain.RoleRequester), workers/2)
}
