package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/pkg/logger"
)

type sqliteChatRepository struct {
	db  *sql.DB
	log logger.Logger

	// mu упорядочивает вставки: created_at строго растет вместе с seq
	mu   sync.Mutex
	last int64
}

func NewSQLiteChatRepository(db *sql.DB, log logger.Logger) ChatRepository {
	return &sqliteChatRepository{db: db, log: log}
}

// nextTimestamp возвращает время в наносекундах, строго большее предыдущего
func (r *sqliteChatRepository) nextTimestamp() int64 {
	now := time.Now().UTC().UnixNano()
	if now <= r.last {
		now = r.last + 1
	}
	r.last = now
	return now
}

func (r *sqliteChatRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	createdAt := r.nextTimestamp()

	query := `
		INSERT INTO chat_messages (id, sender_id, recipient_id, body, ticket_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		id.String(), message.Sender.String(), message.Recipient.String(),
		message.Body, nullableUUID(message.TicketID), createdAt,
	)
	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return err
	}

	message.ID = id
	message.Read = false
	message.CreatedAt = time.Unix(0, createdAt).UTC()
	return nil
}

func (r *sqliteChatRepository) GetConversation(ctx context.Context, userID, counterpartID uuid.UUID) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, ticket_id, is_read, created_at
		FROM chat_messages
		WHERE (sender_id = ? AND recipient_id = ?)
		   OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at ASC, seq ASC
	`
	u, c := userID.String(), counterpartID.String()
	return r.queryMessages(ctx, "Failed to get conversation", query, u, c, c, u)
}

func (r *sqliteChatRepository) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error) {
	query := `
		UPDATE chat_messages
		SET is_read = 1
		WHERE sender_id = ? AND recipient_id = ? AND is_read = 0
	`
	result, err := r.db.ExecContext(ctx, query, senderID.String(), recipientID.String())
	if err != nil {
		r.log.Error("Failed to mark messages as read", "error", err)
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sqliteChatRepository) Search(ctx context.Context, userID uuid.UUID, term string, limit int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, ticket_id, is_read, created_at
		FROM chat_messages
		WHERE (sender_id = ? OR recipient_id = ?)
		  AND body LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`
	u := userID.String()
	return r.queryMessages(ctx, "Failed to search messages", query, u, u, likePattern(term), limit)
}

func (r *sqliteChatRepository) UnreadCounts(ctx context.Context, recipientID uuid.UUID) ([]domain.UnreadCount, error) {
	query := `
		SELECT sender_id, COUNT(*)
		FROM chat_messages
		WHERE recipient_id = ? AND is_read = 0
		GROUP BY sender_id
		ORDER BY sender_id
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID.String())
	if err != nil {
		r.log.Error("Failed to count unread messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	counts := []domain.UnreadCount{}
	for rows.Next() {
		var sender string
		var count domain.UnreadCount
		if err := rows.Scan(&sender, &count.Count); err != nil {
			return nil, err
		}
		if count.Sender, err = uuid.Parse(sender); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

func (r *sqliteChatRepository) queryMessages(ctx context.Context, failMsg, query string, args ...any) ([]*domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error(failMsg, "error", err)
		return nil, err
	}
	defer rows.Close()

	messages := []*domain.ChatMessage{}
	for rows.Next() {
		var (
			id, sender, recipient string
			ticketID              sql.NullString
			createdAt             int64
		)
		message := &domain.ChatMessage{}
		if err := rows.Scan(&id, &sender, &recipient, &message.Body, &ticketID, &message.Read, &createdAt); err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		if message.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if message.Sender, err = uuid.Parse(sender); err != nil {
			return nil, err
		}
		if message.Recipient, err = uuid.Parse(recipient); err != nil {
			return nil, err
		}
		if ticketID.Valid {
			parsed, err := uuid.Parse(ticketID.String)
			if err != nil {
				return nil, err
			}
			message.TicketID = &parsed
		}
		message.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

func nullableUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
