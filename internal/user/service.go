package user

import (
	"context"
	"time"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
)

// Store is what the service needs from persistence.
type Store interface {
	Upsert(ctx context.Context, externalKey, name, email, avatarURL string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByExternalKey(ctx context.Context, externalKey string) (*User, error)
	SetPresence(ctx context.Context, id string, online bool, at time.Time) error
	ListOthers(ctx context.Context, excludeID string) ([]User, error)
	Search(ctx context.Context, excludeID, term string) ([]User, error)
}

type Service struct {
	store Store
	bus   event.Bus
}

func NewService(store Store, bus event.Bus) *Service {
	return &Service{store: store, bus: bus}
}

// ResolveExternal maps an authenticated caller (JWT subject plus profile
// claims) to the internal user id, creating the row on first contact. It is
// the signature the auth middleware consumes.
func (s *Service) ResolveExternal(ctx context.Context, externalKey, name, email, avatarURL string) (string, error) {
	u, err := s.store.GetByExternalKey(ctx, externalKey)
	if err != nil {
		return "", apperr.Internal("resolve caller", err)
	}
	if u == nil {
		if name == "" {
			name = "User"
		}
		u, err = s.store.Upsert(ctx, externalKey, name, email, avatarURL)
		if err != nil {
			return "", apperr.Internal("create caller", err)
		}
	}
	return u.ID, nil
}

// UpsertFromProvider handles identity-provider sync events (webhook).
func (s *Service) UpsertFromProvider(ctx context.Context, externalKey, name, email, avatarURL string) (*User, error) {
	if externalKey == "" {
		return nil, apperr.InvalidArgument("external identity key is required")
	}
	if name == "" {
		name = "User"
	}
	u, err := s.store.Upsert(ctx, externalKey, name, email, avatarURL)
	if err != nil {
		return nil, apperr.Internal("upsert user", err)
	}
	return u, nil
}

func (s *Service) Me(ctx context.Context, callerID string) (*User, error) {
	u, err := s.store.GetByID(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("load caller", err)
	}
	if u == nil {
		return nil, apperr.Unauthenticated("caller identity no longer resolves")
	}
	return u, nil
}

func (s *Service) ListOthers(ctx context.Context, callerID string) ([]User, error) {
	users, err := s.store.ListOthers(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}

func (s *Service) Search(ctx context.Context, callerID, term string) ([]User, error) {
	users, err := s.store.Search(ctx, callerID, term)
	if err != nil {
		return nil, apperr.Internal("search users", err)
	}
	return users, nil
}

// Heartbeat marks the caller online. Advisory only: a crashed client leaves
// a stale online flag until something external corrects it.
func (s *Service) Heartbeat(ctx context.Context, callerID string) error {
	return s.setPresence(ctx, callerID, true)
}

func (s *Service) SetOffline(ctx context.Context, callerID string) error {
	return s.setPresence(ctx, callerID, false)
}

func (s *Service) setPresence(ctx context.Context, callerID string, online bool) error {
	now := time.Now().UTC()
	if err := s.store.SetPresence(ctx, callerID, online, now); err != nil {
		return apperr.Internal("update presence", err)
	}
	s.bus.Publish(ctx, event.Event{
		Type: event.TypePresenceUpdated,
		Data: map[string]interface{}{
			"user_id":      callerID,
			"is_online":    online,
			"last_seen_at": now,
		},
	})
	return nil
}

func (s *Service) GetPresence(ctx context.Context, userID string) (*Presence, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return &Presence{IsOnline: u.IsOnline, LastSeenAt: u.LastSeenAt}, nil
}

// GetProfile is consumed by the conversation, message and typing features
// when enriching their responses.
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, nil
	}
	p := u.Profile()
	return &p, nil
}
