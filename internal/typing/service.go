package typing

import (
	"context"
	"log"
	"time"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
	"go-messenger/internal/user"
)

// TTL bounds how long a typing indicator survives without a refresh, so an
// unreliable client never needs to send an explicit stop.
const TTL = 2000 * time.Millisecond

type Store interface {
	Upsert(ctx context.Context, conversationID, userID string, expiresAt time.Time) error
	Delete(ctx context.Context, conversationID, userID string) error
	ListByConversation(ctx context.Context, conversationID string) ([]Flag, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
}

type Service struct {
	store    Store
	profiles ProfileSource
	bus      event.Bus
	now      func() time.Time
}

func NewService(store Store, profiles ProfileSource, bus event.Bus) *Service {
	return &Service{store: store, profiles: profiles, bus: bus, now: time.Now}
}

// Set refreshes the caller's typing flag (TTL from now) or removes it on an
// explicit stop, e.g. after a send or a cleared input.
func (s *Service) Set(ctx context.Context, callerID, conversationID string, isTyping bool) error {
	if isTyping {
		if err := s.store.Upsert(ctx, conversationID, callerID, s.now().Add(TTL)); err != nil {
			return apperr.Internal("set typing flag", err)
		}
	} else {
		if err := s.store.Delete(ctx, conversationID, callerID); err != nil {
			return apperr.Internal("clear typing flag", err)
		}
	}

	s.bus.Publish(ctx, event.Event{
		Type:           event.TypeTypingUpdated,
		ConversationID: conversationID,
		Data: map[string]interface{}{
			"user_id":   callerID,
			"is_typing": isTyping,
		},
	})
	return nil
}

// ListActive returns profiles of everyone currently typing, excluding the
// viewer. Expired flags are filtered here, never trusted to the reaper.
func (s *Service) ListActive(ctx context.Context, conversationID, viewerID string) ([]user.Profile, error) {
	flags, err := s.store.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal("list typing flags", err)
	}

	now := s.now()
	profiles := make([]user.Profile, 0)
	for _, f := range flags {
		if f.UserID == viewerID || !f.ExpiresAt.After(now) {
			continue
		}
		p, err := s.profiles.GetProfile(ctx, f.UserID)
		if err != nil {
			return nil, apperr.Internal("load typing user", err)
		}
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

// RunReaper deletes expired flags on an interval until ctx is cancelled.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.DeleteExpired(ctx, s.now())
			if err != nil {
				log.Printf("typing: reap expired flags: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("typing: reaped %d expired flags", n)
			}
		}
	}
}
