package reaction

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListByMessage(ctx context.Context, messageID string) ([]Reaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM reactions WHERE message_id = $1
		ORDER BY created_at, id`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []Reaction
	for rows.Next() {
		var re Reaction
		if err := rows.Scan(&re.ID, &re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, re)
	}
	return reactions, rows.Err()
}

// DeleteByMessageUser removes every reaction the user has on the message.
// The unique index allows at most one, but the toggle clears defensively.
func (r *Repository) DeleteByMessageUser(ctx context.Context, messageID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM reactions WHERE message_id = $1 AND user_id = $2", messageID, userID)
	return err
}

// Insert places the user's reaction. On a (message_id, user_id) conflict the
// newer emoji wins, so a concurrent toggle converges to a single row.
func (r *Repository) Insert(ctx context.Context, re *Reaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reactions (id, message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id, user_id) DO UPDATE
		SET emoji = EXCLUDED.emoji, created_at = EXCLUDED.created_at`,
		re.ID, re.MessageID, re.UserID, re.Emoji, re.CreatedAt)
	return err
}
