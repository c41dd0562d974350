package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = "id, external_key, name, email, avatar_url, is_online, last_seen_at"

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.ExternalKey, &u.Name, &u.Email, &u.AvatarURL, &u.IsOnline, &u.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Upsert syncs identity-provider data, keyed by external_key. Profile fields
// are overwritten; presence is left alone on existing rows.
func (r *Repository) Upsert(ctx context.Context, externalKey, name, email, avatarURL string) (*User, error) {
	query := `
		INSERT INTO users (id, external_key, name, email, avatar_url, is_online, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		ON CONFLICT (external_key) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, avatar_url = EXCLUDED.avatar_url
		RETURNING ` + userColumns
	row := r.db.QueryRowContext(ctx, query,
		uuid.NewString(), externalKey, name, email, avatarURL, time.Now().UTC())
	return scanUser(row)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetByExternalKey(ctx context.Context, externalKey string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE external_key = $1"
	return scanUser(r.db.QueryRowContext(ctx, query, externalKey))
}

func (r *Repository) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	query := "UPDATE users SET is_online = $2, last_seen_at = $3 WHERE id = $1"
	_, err := r.db.ExecContext(ctx, query, id, online, at)
	return err
}

// ListOthers returns every user except the caller.
func (r *Repository) ListOthers(ctx context.Context, excludeID string) ([]User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id != $1 ORDER BY name"
	return r.queryUsers(ctx, query, excludeID)
}

// Search matches name or email case-insensitively, excluding the caller.
func (r *Repository) Search(ctx context.Context, excludeID, term string) ([]User, error) {
	query := "SELECT " + userColumns + ` FROM users
		WHERE id != $1 AND (name ILIKE $2 OR email ILIKE $2)
		ORDER BY name LIMIT 25`
	return r.queryUsers(ctx, query, excludeID, "%"+term+"%")
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.ExternalKey, &u.Name, &u.Email, &u.AvatarURL, &u.IsOnline, &u.LastSeenAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
