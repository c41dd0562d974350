package conversation

import (
	"time"

	"go-messenger/internal/message"
	"go-messenger/internal/user"
)

type Conversation struct {
	ID            string    `json:"id"`
	IsGroup       bool      `json:"is_group"`
	Name          string    `json:"name,omitempty"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Membership is a participant's per-conversation state, principally the
// read cursor. Exactly one row exists per (conversation, user).
type Membership struct {
	ConversationID    string    `json:"conversation_id"`
	UserID            string    `json:"user_id"`
	LastReadMessageID string    `json:"last_read_message_id,omitempty"`
	JoinedAt          time.Time `json:"joined_at"`
}

// Summary is a conversation enriched for the caller's sidebar: the other
// participant (direct), member count (group), last message and unread count.
type Summary struct {
	Conversation
	OtherUser   *user.Profile    `json:"other_user,omitempty"`
	MemberCount int              `json:"member_count,omitempty"`
	LastMessage *message.Message `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
}
