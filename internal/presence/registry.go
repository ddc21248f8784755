package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"helpdesk_chat/internal/domain"
)

// Conn - дескриптор активного соединения, куда можно отправить кадр
type Conn interface {
	ID() string
	// Push не блокирует; false означает, что кадр не доставлен
	Push(frame []byte) bool
	Close()
}

// Entry - запись присутствия (одна на пользователя)
type Entry struct {
	UserID      uuid.UUID
	Role        domain.Role
	Name        string
	Department  string
	Conn        Conn
	ConnectedAt time.Time
}

func (e Entry) View() domain.ActiveUserView {
	return domain.ActiveUserView{
		ID:         e.UserID,
		Name:       e.Name,
		Department: e.Department,
	}
}

type set map[uuid.UUID]struct{}

// Registry - таблица подключенных пользователей. Все операции под одним мьютексом,
// индексы по ролям обновляются в той же критической секции, что и основная таблица.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
	byRole  map[domain.Role]set
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]Entry),
		byRole: map[domain.Role]set{
			domain.RoleRequester: make(set),
			domain.RoleResponder: make(set),
		},
	}
}

// Register вставляет или заменяет запись пользователя. Если у пользователя было
// другое соединение, возвращается вытесненная запись; закрывать ее соединение
// должен вызывающий.
func (r *Registry) Register(entry Entry) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.entries[entry.UserID]
	if existed {
		delete(r.byRole[prev.Role], entry.UserID)
	}

	r.entries[entry.UserID] = entry
	r.indexFor(entry.Role)[entry.UserID] = struct{}{}

	if existed && prev.Conn != nil && prev.Conn != entry.Conn {
		return prev, true
	}
	return Entry{}, false
}

// Unregister удаляет запись пользователя, если она есть
func (r *Registry) Unregister(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(userID)
}

// Release удаляет запись только если она все еще принадлежит conn.
// Так отключение вытесненного соединения не снимает его преемника.
func (r *Registry) Release(userID uuid.UUID, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok || entry.Conn != conn {
		return false
	}
	r.removeLocked(userID)
	return true
}

// Lookup возвращает соединение пользователя, если он подключен
func (r *Registry) Lookup(userID uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// Snapshot - копия видимых для viewer пользователей: только противоположная роль
func (r *Registry) Snapshot(viewer domain.Role) []domain.ActiveUserView {
	entries := r.Members(viewer.Counterpart())
	return lo.Map(entries, func(e Entry, _ int) domain.ActiveUserView {
		return e.View()
	})
}

// Members - копия записей указанной роли, отсортированная по имени
func (r *Registry) Members(role domain.Role) []Entry {
	r.mu.RLock()
	ids := r.byRole[role]
	members := make([]Entry, 0, len(ids))
	for id := range ids {
		members = append(members, r.entries[id])
	}
	r.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool {
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].UserID.String() < members[j].UserID.String()
	})
	return members
}

// Count - число подключенных по ролям
func (r *Registry) Count() map[domain.Role]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapValues(r.byRole, func(ids set, _ domain.Role) int {
		return len(ids)
	})
}

func (r *Registry) removeLocked(userID uuid.UUID) {
	entry, ok := r.entries[userID]
	if !ok {
		return
	}
	delete(r.entries, userID)
	delete(r.byRole[entry.Role], userID)
}

func (r *Registry) indexFor(role domain.Role) set {
	ids, ok := r.byRole[role]
	if !ok {
		ids = make(set)
		r.byRole[role] = ids
	}
	return ids
}
