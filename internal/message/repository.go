package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create persists the message, refreshes the conversation's last-message
// pointer and advances the sender's own read cursor, all in one transaction.
// A sender has always read their own message.
func (r *Repository) Create(ctx context.Context, m *Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, attachment_key, attachment_name, deleted, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), FALSE, $7)`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.AttachmentKey, m.AttachmentName, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE conversations SET last_message_id = $1 WHERE id = $2",
		m.ID, m.ConversationID)
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversation_members SET last_read_message_id = $1
		WHERE conversation_id = $2 AND user_id = $3`,
		m.ID, m.ConversationID, m.SenderID)
	if err != nil {
		return fmt.Errorf("advance sender cursor: %w", err)
	}

	return tx.Commit()
}

const messageColumns = `id, conversation_id, sender_id, body,
	COALESCE(attachment_key, ''), COALESCE(attachment_name, ''), deleted, created_at`

func (r *Repository) Get(ctx context.Context, id string) (*Message, error) {
	m := &Message{}
	query := "SELECT " + messageColumns + " FROM messages WHERE id = $1"
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Body,
		&m.AttachmentKey, &m.AttachmentName, &m.Deleted, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListByConversation returns every message in insertion order, soft-deleted
// rows included.
func (r *Repository) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	query := "SELECT " + messageColumns + ` FROM messages
		WHERE conversation_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body,
			&m.AttachmentKey, &m.AttachmentName, &m.Deleted, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) MarkDeleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE messages SET deleted = TRUE WHERE id = $1", id)
	return err
}
