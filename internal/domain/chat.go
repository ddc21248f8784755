package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage - личное сообщение между сотрудником и HR.
// После сохранения меняется только Read и только false -> true.
type ChatMessage struct {
	ID        uuid.UUID  `json:"id"`
	Sender    uuid.UUID  `json:"sender"`
	Recipient uuid.UUID  `json:"recipient"`
	Body      string     `json:"body"`
	TicketID  *uuid.UUID `json:"ticketId,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"createdAt"`
}

// UnreadCount - количество непрочитанных сообщений от одного отправителя
type UnreadCount struct {
	Sender uuid.UUID `json:"sender"`
	Count  int64     `json:"count"`
}

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

// ChatStats - сводка по переписке для администраторов
type ChatStats struct {
	TotalMessages  int64          `json:"totalMessages"`
	UnreadMessages int64          `json:"unreadMessages"`
	RecentMessages int64          `json:"recentMessages"`
	Since          time.Time      `json:"since"`
	Connected      map[string]int `json:"connected"`
}
