package reaction

import "time"

type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is the pre-aggregated shape clients render under a message.
type Group struct {
	Emoji           string `json:"emoji"`
	Count           int    `json:"count"`
	ReactedByViewer bool   `json:"reacted_by_viewer"`
}
