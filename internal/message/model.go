package message

import (
	"time"

	"go-messenger/internal/user"
)

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	AttachmentKey  string    `json:"attachment_key,omitempty"`
	AttachmentName string    `json:"attachment_name,omitempty"`
	Deleted        bool      `json:"deleted"`
	CreatedAt      time.Time `json:"created_at"`
}

// Redacted returns the message with content suppressed once the soft-delete
// flag is set. The row itself is never dropped from listings.
func (m Message) Redacted() Message {
	if !m.Deleted {
		return m
	}
	m.Body = ""
	m.AttachmentKey = ""
	m.AttachmentName = ""
	return m
}

// View is a ledger entry enriched for clients: sender profile plus a
// time-bounded attachment URL when one could be resolved.
type View struct {
	Message
	Sender  *user.Profile `json:"sender,omitempty"`
	FileURL string        `json:"file_url,omitempty"`
}
