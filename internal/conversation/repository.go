package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// directKey derives the natural key of a direct conversation: the sorted
// participant pair. A unique index on it makes create-if-absent converge
// under concurrent duplicate calls instead of racing.
func directKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

const conversationColumns = `id, is_group, COALESCE(name, ''),
	COALESCE(last_message_id::text, ''), created_at`

func scanConversation(row *sql.Row) (*Conversation, error) {
	c := &Conversation{}
	err := row.Scan(&c.ID, &c.IsGroup, &c.Name, &c.LastMessageID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// GetOrCreateDirect finds or creates the direct conversation between two
// users. Conversation and both membership rows land in one transaction; on
// a key conflict the existing conversation wins and nothing is written.
func (r *Repository) GetOrCreateDirect(ctx context.Context, userA, userB string) (*Conversation, error) {
	key := directKey(userA, userB)
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := &Conversation{ID: uuid.NewString(), CreatedAt: now}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO conversations (id, is_group, direct_key, created_at)
		VALUES ($1, FALSE, $2, $3)
		ON CONFLICT (direct_key) DO NOTHING
		RETURNING id`,
		c.ID, key, now).Scan(&c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Already exists (or a concurrent call won); fetch it.
		existing, err := scanConversation(tx.QueryRowContext(ctx,
			"SELECT "+conversationColumns+" FROM conversations WHERE direct_key = $1", key))
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("direct conversation %s vanished mid-transaction", key)
		}
		return existing, tx.Commit()
	}
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_members (conversation_id, user_id, joined_at)
		VALUES ($1, $2, $4), ($1, $3, $4)`,
		c.ID, userA, userB, now)
	if err != nil {
		return nil, fmt.Errorf("insert memberships: %w", err)
	}

	return c, tx.Commit()
}

// CreateGroup creates a group conversation plus one membership per
// participant as an all-or-nothing unit.
func (r *Repository) CreateGroup(ctx context.Context, name string, memberIDs []string) (*Conversation, error) {
	now := time.Now().UTC()
	c := &Conversation{
		ID:        uuid.NewString(),
		IsGroup:   true,
		Name:      name,
		CreatedAt: now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, is_group, name, created_at)
		VALUES ($1, TRUE, $2, $3)`,
		c.ID, name, now)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	for _, userID := range memberIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id, joined_at)
			VALUES ($1, $2, $3)`,
			c.ID, userID, now)
		if err != nil {
			return nil, fmt.Errorf("insert membership %s: %w", userID, err)
		}
	}

	return c, tx.Commit()
}

func (r *Repository) Get(ctx context.Context, id string) (*Conversation, error) {
	return scanConversation(r.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = $1", id))
}

// ListByParticipant returns every conversation the user belongs to, oldest
// first; the service layer re-sorts by recency after enrichment.
func (r *Repository) ListByParticipant(ctx context.Context, userID string) ([]Conversation, error) {
	query := `
		SELECT c.id, c.is_group, COALESCE(c.name, ''),
		       COALESCE(c.last_message_id::text, ''), c.created_at
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at, c.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.IsGroup, &c.Name, &c.LastMessageID, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (r *Repository) ListMemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_members
		WHERE conversation_id = $1 ORDER BY joined_at, user_id`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) GetMembership(ctx context.Context, conversationID, userID string) (*Membership, error) {
	m := &Membership{}
	err := r.db.QueryRowContext(ctx, `
		SELECT conversation_id, user_id, COALESCE(last_read_message_id::text, ''), joined_at
		FROM conversation_members
		WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID).Scan(&m.ConversationID, &m.UserID, &m.LastReadMessageID, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *Repository) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2
		)`, conversationID, userID).Scan(&exists)
	return exists, err
}

// AdvanceCursor unconditionally sets the read cursor. A caller without a
// membership row is a silent no-op, never an error.
func (r *Repository) AdvanceCursor(ctx context.Context, conversationID, userID, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversation_members SET last_read_message_id = $3
		WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, messageID)
	return err
}
