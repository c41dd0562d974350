package typing

import "time"

// Flag marks one user as typing in one conversation until ExpiresAt. Expiry
// is evaluated lazily at read time; the reaper only curbs storage growth.
type Flag struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}
