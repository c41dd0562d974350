package typing

import (
	"context"
	"database/sql"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, conversationID, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO typing_flags (conversation_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id) DO UPDATE
		SET expires_at = EXCLUDED.expires_at`,
		conversationID, userID, expiresAt)
	return err
}

func (r *Repository) Delete(ctx context.Context, conversationID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM typing_flags WHERE conversation_id = $1 AND user_id = $2",
		conversationID, userID)
	return err
}

func (r *Repository) ListByConversation(ctx context.Context, conversationID string) ([]Flag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, user_id, expires_at
		FROM typing_flags WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []Flag
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.ConversationID, &f.UserID, &f.ExpiresAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// DeleteExpired sweeps stale flags. Storage hygiene only; reads already
// filter on expires_at.
func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM typing_flags WHERE expires_at <= $1", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
