package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID          int64                  `json:"id"`
	EventTime   time.Time              `json:"event_time"`
	ActorUserID *uuid.UUID             `json:"actor_user_id,omitempty"`
	ActorRole   string                 `json:"actor_role"`
	EventType   string                 `json:"event_type"`
	Payload     map[string]interface{} `json:"payload"`
}

const (
	ActorRoleSystem = "system"
	ActorRoleUser   = "user"
)

const (
	EventTypeChatConnected    = "CHAT_CONNECTED"
	EventTypeChatDisconnected = "CHAT_DISCONNECTED"
	EventTypeChatSuperseded   = "CHAT_SUPERSEDED"
	EventTypeChatAuthFailed   = "CHAT_AUTH_FAILED"
	EventTypeChatMessagesRead = "CHAT_MESSAGES_READ"
)
