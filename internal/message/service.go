package message

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
	"go-messenger/internal/user"
)

// Store is the ledger's persistence surface.
type Store interface {
	Create(ctx context.Context, m *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
	MarkDeleted(ctx context.Context, id string) error
}

// MembershipChecker answers whether a user belongs to a conversation.
// Implemented by the conversation repository.
type MembershipChecker interface {
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
}

// ProfileSource resolves sender profiles for enrichment.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
}

// BlobResolver exchanges a stored attachment key for a fetchable URL.
type BlobResolver interface {
	ResolveURL(ctx context.Context, key string) (string, error)
}

type Service struct {
	store    Store
	members  MembershipChecker
	profiles ProfileSource
	blobs    BlobResolver
	bus      event.Bus
}

func NewService(store Store, members MembershipChecker, profiles ProfileSource, blobs BlobResolver, bus event.Bus) *Service {
	return &Service{store: store, members: members, profiles: profiles, blobs: blobs, bus: bus}
}

// Send appends a message. The caller must be a participant of the target
// conversation; the storage layer advances the sender's read cursor and the
// conversation's last-message pointer in the same transaction.
func (s *Service) Send(ctx context.Context, callerID, conversationID, body, attachmentKey, attachmentName string) (*Message, error) {
	if body == "" && attachmentKey == "" {
		return nil, apperr.InvalidArgument("message needs a body or an attachment")
	}

	ok, err := s.members.IsMember(ctx, conversationID, callerID)
	if err != nil {
		return nil, apperr.Internal("check membership", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("caller is not a participant of this conversation")
	}

	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       callerID,
		Body:           body,
		AttachmentKey:  attachmentKey,
		AttachmentName: attachmentName,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, apperr.Internal("persist message", err)
	}

	s.bus.Publish(ctx, event.Event{
		Type:           event.TypeMessageCreated,
		ConversationID: conversationID,
		Data:           s.enrich(ctx, *m),
	})
	return m, nil
}

// List returns the full ledger for a conversation in insertion order.
// Soft-deleted entries are carried with the flag set and content suppressed.
func (s *Service) List(ctx context.Context, conversationID string) ([]View, error) {
	messages, err := s.store.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal("list messages", err)
	}

	views := make([]View, 0, len(messages))
	for _, m := range messages {
		views = append(views, s.enrich(ctx, m))
	}
	return views, nil
}

// enrich attaches the sender profile and, when an attachment is present, a
// fetch URL. URL resolution failures degrade to an empty URL; the message is
// never dropped.
func (s *Service) enrich(ctx context.Context, m Message) View {
	m = m.Redacted()
	v := View{Message: m}

	sender, err := s.profiles.GetProfile(ctx, m.SenderID)
	if err != nil {
		log.Printf("message: resolve sender %s: %v", m.SenderID, err)
	}
	v.Sender = sender

	if m.AttachmentKey != "" {
		url, err := s.blobs.ResolveURL(ctx, m.AttachmentKey)
		if err != nil {
			log.Printf("message: resolve attachment %s: %v", m.AttachmentKey, err)
		} else {
			v.FileURL = url
		}
	}
	return v
}

// Delete soft-deletes a message. Only the original sender may delete;
// content stays in storage but no read path surfaces it again.
func (s *Service) Delete(ctx context.Context, callerID, messageID string) error {
	m, err := s.store.Get(ctx, messageID)
	if err != nil {
		return apperr.Internal("load message", err)
	}
	if m == nil {
		return apperr.NotFound("message not found")
	}
	if m.SenderID != callerID {
		return apperr.Unauthorized("only the sender can delete a message")
	}

	if err := s.store.MarkDeleted(ctx, messageID); err != nil {
		return apperr.Internal("delete message", err)
	}

	s.bus.Publish(ctx, event.Event{
		Type:           event.TypeMessageDeleted,
		ConversationID: m.ConversationID,
		Data:           map[string]string{"message_id": messageID},
	})
	return nil
}
