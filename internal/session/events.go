package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"helpdesk_chat/internal/domain"
)

// Имена событий протокола
const (
	EventPrivateMessage    = "private_message"
	EventPrivateMessageAck = "private_message_ack"
	EventTyping            = "typing"
	EventMessagesRead      = "messages_read"
	EventError             = "error"
)

// Коды ошибок в событии error
const (
	CodeBadRequest  = "bad_request"
	CodeStoreError  = "store_error"
	CodeRateLimited = "rate_limited"
	CodeInternal    = "internal"
)

// PresenceEvent - имя события снапшота для зрителя роли viewer:
// сотрудники получают active_hr_users, HR - active_employee_users
func PresenceEvent(viewer domain.Role) string {
	return "active_" + viewer.Counterpart().Label() + "_users"
}

// Envelope - кадр протокола в обе стороны
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode упаковывает данные события в кадр
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Входящие события (клиент -> сервер)

type PrivateMessageRequest struct {
	Recipient       uuid.UUID  `json:"recipient" validate:"required"`
	Body            string     `json:"body" validate:"required"`
	TicketID        *uuid.UUID `json:"ticketId,omitempty"`
	ClientMessageID string     `json:"clientMessageId,omitempty" validate:"omitempty,max=64"`
}

type TypingRequest struct {
	Recipient uuid.UUID `json:"recipient" validate:"required"`
	IsTyping  bool      `json:"isTyping"`
}

// Исходящие события (сервер -> клиент)

// MessagePayload - сохраненная запись плюс отображаемые данные отправителя
type MessagePayload struct {
	ID         uuid.UUID  `json:"id"`
	Sender     uuid.UUID  `json:"sender"`
	Recipient  uuid.UUID  `json:"recipient"`
	Body       string     `json:"body"`
	TicketID   *uuid.UUID `json:"ticketId,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"createdAt"`
	SenderName string     `json:"senderName,omitempty"`
	SenderRole string     `json:"senderRole,omitempty"`
}

func NewMessagePayload(msg *domain.ChatMessage, sender *domain.SessionContext) MessagePayload {
	payload := MessagePayload{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Body:      msg.Body,
		TicketID:  msg.TicketID,
		Read:      msg.Read,
		CreatedAt: msg.CreatedAt,
	}
	if sender != nil {
		payload.SenderName = sender.Name
		payload.SenderRole = sender.DirectoryRole
	}
	return payload
}

type AckPayload struct {
	MessagePayload
	ClientMessageID string `json:"clientMessageId,omitempty"`
	Delivered       bool   `json:"delivered"`
}

type TypingPayload struct {
	Sender   uuid.UUID `json:"sender"`
	IsTyping bool      `json:"isTyping"`
}

type ReadPayload struct {
	Reader uuid.UUID `json:"reader"`
	Count  int64     `json:"count"`
}

type ErrorPayload struct {
	Event           string `json:"event,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}
