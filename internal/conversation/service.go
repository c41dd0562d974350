package conversation

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"go-messenger/internal/apperr"
	"go-messenger/internal/message"
	"go-messenger/internal/user"
)

// Store is the directory's persistence surface.
type Store interface {
	GetOrCreateDirect(ctx context.Context, userA, userB string) (*Conversation, error)
	CreateGroup(ctx context.Context, name string, memberIDs []string) (*Conversation, error)
	Get(ctx context.Context, id string) (*Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]Conversation, error)
	ListMemberIDs(ctx context.Context, conversationID string) ([]string, error)
	GetMembership(ctx context.Context, conversationID, userID string) (*Membership, error)
	AdvanceCursor(ctx context.Context, conversationID, userID, messageID string) error
}

// MessageSource feeds preview and unread computation. Implemented by the
// message repository.
type MessageSource interface {
	Get(ctx context.Context, id string) (*message.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]message.Message, error)
}

// ProfileSource resolves participant profiles for enrichment.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
}

type Service struct {
	store    Store
	messages MessageSource
	profiles ProfileSource
}

func NewService(store Store, messages MessageSource, profiles ProfileSource) *Service {
	return &Service{store: store, messages: messages, profiles: profiles}
}

// GetOrCreateDirect returns the existing direct conversation between caller
// and other, creating it (with both memberships) when absent.
func (s *Service) GetOrCreateDirect(ctx context.Context, callerID, otherID string) (*Conversation, error) {
	if otherID == "" || otherID == callerID {
		return nil, apperr.InvalidArgument("a direct conversation needs a distinct other participant")
	}
	other, err := s.profiles.GetProfile(ctx, otherID)
	if err != nil {
		return nil, apperr.Internal("load other participant", err)
	}
	if other == nil {
		return nil, apperr.NotFound("other participant not found")
	}

	c, err := s.store.GetOrCreateDirect(ctx, callerID, otherID)
	if err != nil {
		return nil, apperr.Internal("get or create direct conversation", err)
	}
	return c, nil
}

// CreateGroup creates a group conversation with the caller plus at least two
// other members. Nothing persists when validation fails.
func (s *Service) CreateGroup(ctx context.Context, callerID, name string, otherMemberIDs []string) (*Conversation, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("a group conversation needs a name")
	}

	// Deduplicate; participants are a set. The caller is always included.
	seen := map[string]bool{callerID: true}
	members := []string{callerID}
	for _, id := range otherMemberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 3 {
		return nil, apperr.InvalidArgument("a group needs at least two other members")
	}

	c, err := s.store.CreateGroup(ctx, name, members)
	if err != nil {
		return nil, apperr.Internal("create group", err)
	}
	return c, nil
}

// ListMine returns the caller's conversations enriched for display, sorted
// by latest activity. Conversations with equal timestamps keep their
// discovery order (stable sort).
func (s *Service) ListMine(ctx context.Context, callerID string) ([]Summary, error) {
	conversations, err := s.store.ListByParticipant(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("list conversations", err)
	}

	summaries := make([]Summary, 0, len(conversations))
	for _, c := range conversations {
		sum := Summary{Conversation: c}

		memberIDs, err := s.store.ListMemberIDs(ctx, c.ID)
		if err != nil {
			return nil, apperr.Internal("list members", err)
		}
		// Member count is a group-only field; direct conversations carry
		// the other participant's profile instead.
		if c.IsGroup {
			sum.MemberCount = len(memberIDs)
		}

		if !c.IsGroup {
			for _, id := range memberIDs {
				if id == callerID {
					continue
				}
				profile, err := s.profiles.GetProfile(ctx, id)
				if err != nil {
					log.Printf("conversation: resolve participant %s: %v", id, err)
					break
				}
				sum.OtherUser = profile
				break
			}
		}

		if c.LastMessageID != "" {
			last, err := s.messages.Get(ctx, c.LastMessageID)
			if err != nil {
				return nil, apperr.Internal("load last message", err)
			}
			if last != nil {
				redacted := last.Redacted()
				sum.LastMessage = &redacted
			}
		}

		unread, err := s.unreadCount(ctx, c.ID, callerID)
		if err != nil {
			return nil, err
		}
		sum.UnreadCount = unread

		summaries = append(summaries, sum)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return activityTime(summaries[i]).After(activityTime(summaries[j]))
	})
	return summaries, nil
}

func activityTime(s Summary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.CreatedAt
}

// unreadCount implements the read-cursor algorithm: with no cursor, every
// message not sent by the user counts; with a cursor, only messages newer
// than the cursor message. A cursor that no longer resolves counts as zero,
// a fail-safe against over-counting.
func (s *Service) unreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	membership, err := s.store.GetMembership(ctx, conversationID, userID)
	if err != nil {
		return 0, apperr.Internal("load membership", err)
	}
	if membership == nil {
		return 0, nil
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return 0, apperr.Internal("list messages", err)
	}

	if membership.LastReadMessageID == "" {
		count := 0
		for _, m := range messages {
			if m.SenderID != userID {
				count++
			}
		}
		return count, nil
	}

	lastRead, err := s.messages.Get(ctx, membership.LastReadMessageID)
	if err != nil {
		return 0, apperr.Internal("load cursor message", err)
	}
	if lastRead == nil {
		return 0, nil
	}

	count := 0
	for _, m := range messages {
		if m.CreatedAt.After(lastRead.CreatedAt) && m.SenderID != userID {
			count++
		}
	}
	return count, nil
}

// ListMembers returns each participant's profile. A missing conversation is
// an empty result, not an error.
func (s *Service) ListMembers(ctx context.Context, conversationID string) ([]user.Profile, error) {
	c, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal("load conversation", err)
	}
	if c == nil {
		return []user.Profile{}, nil
	}

	memberIDs, err := s.store.ListMemberIDs(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}

	profiles := make([]user.Profile, 0, len(memberIDs))
	for _, id := range memberIDs {
		p, err := s.profiles.GetProfile(ctx, id)
		if err != nil {
			return nil, apperr.Internal("load member profile", err)
		}
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

// MarkRead advances the caller's read cursor. Callers without a membership
// row are a no-op by design.
func (s *Service) MarkRead(ctx context.Context, conversationID, callerID, messageID string) error {
	if messageID == "" {
		return apperr.InvalidArgument("message id is required")
	}
	// The column is a UUID; reject malformed ids here instead of letting
	// the cast fail in storage.
	if _, err := uuid.Parse(messageID); err != nil {
		return apperr.InvalidArgument("malformed message id")
	}
	if err := s.store.AdvanceCursor(ctx, conversationID, callerID, messageID); err != nil {
		return apperr.Internal("advance read cursor", err)
	}
	return nil
}
