package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// MessageRepository manages persistence for conversations and messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// ListConversations returns the user's threads with counterpart name, last
// message preview and unread count, most recently active first.
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	const query = `SELECT c.id, c.application_id, c.participant_one, c.participant_two, c.created_at, c.updated_at,
        cu.full_name AS counterpart_name,
        lm.body AS last_message,
        lm.created_at AS last_message_at,
        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read_at IS NULL) AS unread_count
        FROM conversations c
        JOIN users cu ON cu.id = CASE WHEN c.participant_one = $1 THEN c.participant_two ELSE c.participant_one END
        LEFT JOIN LATERAL (
                SELECT body, created_at FROM messages m
                WHERE m.conversation_id = c.id
                ORDER BY m.created_at DESC LIMIT 1
        ) lm ON TRUE
        WHERE c.participant_one = $1 OR c.participant_two = $1
        ORDER BY c.updated_at DESC`
	var summaries []models.ConversationSummary
	if err := r.db.SelectContext(ctx, &summaries, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}

// FindConversationByID fetches one conversation.
func (r *MessageRepository) FindConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	const query = `SELECT id, application_id, participant_one, participant_two, created_at, updated_at
        FROM conversations WHERE id = $1 LIMIT 1`
	var conversation models.Conversation
	if err := r.db.GetContext(ctx, &conversation, query, id); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindConversationBetween returns the existing thread between two users for an
// application, nil otherwise. Participants match in either order.
func (r *MessageRepository) FindConversationBetween(ctx context.Context, userA, userB string, applicationID *string) (*models.Conversation, error) {
	query := `SELECT id, application_id, participant_one, participant_two, created_at, updated_at
        FROM conversations
        WHERE ((participant_one = $1 AND participant_two = $2) OR (participant_one = $2 AND participant_two = $1))`
	args := []interface{}{userA, userB}
	if applicationID != nil {
		query += fmt.Sprintf(" AND application_id = $%d", len(args)+1)
		args = append(args, *applicationID)
	} else {
		query += " AND application_id IS NULL"
	}
	query += " LIMIT 1"

	var conversation models.Conversation
	if err := r.db.GetContext(ctx, &conversation, query, args...); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CreateConversation inserts a new thread.
func (r *MessageRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = now
	const query = `INSERT INTO conversations (id, application_id, participant_one, participant_two, created_at, updated_at)
        VALUES (:id, :application_id, :participant_one, :participant_two, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conversation); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages oldest first.
func (r *MessageRepository) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	const query = `SELECT id, conversation_id, sender_id, body, read_at, created_at
        FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CreateMessage appends a message and bumps the conversation's updated_at so
// active threads float to the top of the inbox.
func (r *MessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create message: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO messages (id, conversation_id, sender_id, body, read_at, created_at)
        VALUES (:id, :conversation_id, :sender_id, :body, :read_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	const touch = `UPDATE conversations SET updated_at = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, touch, message.CreatedAt, message.ConversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create message: %w", err)
	}
	return nil
}

// MarkRead stamps all counterpart messages in the conversation as read.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, readerID string, readAt time.Time) error {
	const query = `UPDATE messages SET read_at = $1
        WHERE conversation_id = $2 AND sender_id <> $3 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, readAt, conversationID, readerID); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}

// CountUnread returns the user's unread message total across all threads.
func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages m
        JOIN conversations c ON c.id = m.conversation_id
        WHERE (c.participant_one = $1 OR c.participant_two = $1)
        AND m.sender_id <> $1 AND m.read_at IS NULL`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return total, nil
}
