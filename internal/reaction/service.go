package reaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
	"go-messenger/internal/message"
)

type Store interface {
	ListByMessage(ctx context.Context, messageID string) ([]Reaction, error)
	DeleteByMessageUser(ctx context.Context, messageID, userID string) error
	Insert(ctx context.Context, re *Reaction) error
}

// MessageSource verifies the target message and locates its conversation
// for event fan-out. Implemented by the message repository.
type MessageSource interface {
	Get(ctx context.Context, id string) (*message.Message, error)
}

type Service struct {
	store    Store
	messages MessageSource
	bus      event.Bus
}

func NewService(store Store, messages MessageSource, bus event.Bus) *Service {
	return &Service{store: store, messages: messages, bus: bus}
}

// Toggle flips the caller's reaction: same emoji removes it, a different
// emoji replaces whatever was there, nothing yields a fresh reaction. A user
// holds at most one active reaction per message.
func (s *Service) Toggle(ctx context.Context, callerID, messageID, emoji string) error {
	if emoji == "" {
		return apperr.InvalidArgument("emoji is required")
	}

	m, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return apperr.Internal("load message", err)
	}
	if m == nil {
		return apperr.NotFound("message not found")
	}

	all, err := s.store.ListByMessage(ctx, messageID)
	if err != nil {
		return apperr.Internal("list reactions", err)
	}

	sameEmoji := false
	hasMine := false
	for _, re := range all {
		if re.UserID != callerID {
			continue
		}
		hasMine = true
		if re.Emoji == emoji {
			sameEmoji = true
		}
	}

	if sameEmoji {
		// Toggle off.
		if err := s.store.DeleteByMessageUser(ctx, messageID, callerID); err != nil {
			return apperr.Internal("remove reaction", err)
		}
		s.publish(ctx, m.ConversationID, messageID)
		return nil
	}

	if hasMine {
		// Switch: clear the previous reaction before placing the new one.
		if err := s.store.DeleteByMessageUser(ctx, messageID, callerID); err != nil {
			return apperr.Internal("clear previous reaction", err)
		}
	}

	re := &Reaction{
		ID:        uuid.NewString(),
		MessageID: messageID,
		UserID:    callerID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, re); err != nil {
		return apperr.Internal("insert reaction", err)
	}
	s.publish(ctx, m.ConversationID, messageID)
	return nil
}

func (s *Service) publish(ctx context.Context, conversationID, messageID string) {
	s.bus.Publish(ctx, event.Event{
		Type:           event.TypeReactionUpdated,
		ConversationID: conversationID,
		Data:           map[string]string{"message_id": messageID},
	})
}

// List groups the message's reactions by emoji in first-occurrence order.
// viewerID may be empty for anonymous viewers.
func (s *Service) List(ctx context.Context, messageID, viewerID string) ([]Group, error) {
	reactions, err := s.store.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, apperr.Internal("list reactions", err)
	}

	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, re := range reactions {
		i, ok := index[re.Emoji]
		if !ok {
			i = len(groups)
			index[re.Emoji] = i
			groups = append(groups, Group{Emoji: re.Emoji})
		}
		groups[i].Count++
		if viewerID != "" && re.UserID == viewerID {
			groups[i].ReactedByViewer = true
		}
	}
	return groups, nil
}
