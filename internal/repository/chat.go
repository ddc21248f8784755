//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/pkg/logger"
)

// ChatRepository - журнал личных сообщений: только вставка, выборка по паре
// собеседников и перевод флага read из false в true
type ChatRepository interface {
	// Create сохраняет сообщение; ID, CreatedAt и Read=false назначает хранилище
	Create(ctx context.Context, message *domain.ChatMessage) error
	// GetConversation - все сообщения пары в порядке возрастания CreatedAt
	GetConversation(ctx context.Context, userID, counterpartID uuid.UUID) ([]*domain.ChatMessage, error)
	// MarkRead переводит непрочитанные сообщения sender -> recipient в прочитанные
	MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error)
	Search(ctx context.Context, userID uuid.UUID, term string, limit int) ([]*domain.ChatMessage, error)
	UnreadCounts(ctx context.Context, recipientID uuid.UUID) ([]domain.UnreadCount, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

func (r *chatRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (sender_id, recipient_id, body, ticket_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.Sender, message.Recipient, message.Body, message.TicketID,
	).Scan(&message.ID, &message.Read, &message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return err
	}

	return nil
}

func (r *chatRepository) GetConversation(ctx context.Context, userID, counterpartID uuid.UUID) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, ticket_id, is_read, created_at
		FROM chat_messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC, seq ASC
	`

	return r.queryMessages(ctx, "Failed to get conversation", query, userID, counterpartID)
}

func (r *chatRepository) MarkRead(ctx context.Context, recipientID, senderID uuid.UUID) (int64, error) {
	query := `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE sender_id = $1 AND recipient_id = $2 AND is_read = FALSE
	`

	tag, err := r.db.Exec(ctx, query, senderID, recipientID)
	if err != nil {
		r.log.Error("Failed to mark messages as read", "error", err)
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *chatRepository) Search(ctx context.Context, userID uuid.UUID, term string, limit int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, ticket_id, is_read, created_at
		FROM chat_messages
		WHERE (sender_id = $1 OR recipient_id = $1)
		  AND body ILIKE $2 ESCAPE '\'
		ORDER BY created_at DESC, seq DESC
		LIMIT $3
	`

	return r.queryMessages(ctx, "Failed to search messages", query, userID, likePattern(term), limit)
}

func (r *chatRepository) UnreadCounts(ctx context.Context, recipientID uuid.UUID) ([]domain.UnreadCount, error) {
	query := `
		SELECT sender_id, COUNT(*)
		FROM chat_messages
		WHERE recipient_id = $1 AND is_read = FALSE
		GROUP BY sender_id
		ORDER BY sender_id
	`

	rows, err := r.db.Query(ctx, query, recipientID)
	if err != nil {
		r.log.Error("Failed to count unread messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	counts := []domain.UnreadCount{}
	for rows.Next() {
		var count domain.UnreadCount
		if err := rows.Scan(&count.Sender, &count.Count); err != nil {
			r.log.Error("Failed to scan unread count", "error", err)
			return nil, err
		}
		counts = append(counts, count)
	}

	return counts, rows.Err()
}

func (r *chatRepository) queryMessages(ctx context.Context, failMsg, query string, args ...any) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error(failMsg, "error", err)
		return nil, err
	}
	defer rows.Close()

	messages := []*domain.ChatMessage{}
	for rows.Next() {
		message := &domain.ChatMessage{}
		err := rows.Scan(
			&message.ID, &message.Sender, &message.Recipient, &message.Body,
			&message.TicketID, &message.Read, &message.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// likePattern экранирует спецсимволы LIKE и оборачивает терм в %...%
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}
