package user_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
	"go-messenger/internal/user"
)

type fakeStore struct {
	byID  map[string]*user.User
	byKey map[string]*user.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:  make(map[string]*user.User),
		byKey: make(map[string]*user.User),
	}
}

func (f *fakeStore) Upsert(_ context.Context, externalKey, name, email, avatarURL string) (*user.User, error) {
	if existing, ok := f.byKey[externalKey]; ok {
		existing.Name = name
		existing.Email = email
		existing.AvatarURL = avatarURL
		return existing, nil
	}
	u := &user.User{
		ID:          uuid.NewString(),
		ExternalKey: externalKey,
		Name:        name,
		Email:       email,
		AvatarURL:   avatarURL,
		IsOnline:    true,
		LastSeenAt:  time.Now(),
	}
	f.byID[u.ID] = u
	f.byKey[externalKey] = u
	return u, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*user.User, error) {
	return f.byID[id], nil
}

func (f *fakeStore) GetByExternalKey(_ context.Context, externalKey string) (*user.User, error) {
	return f.byKey[externalKey], nil
}

func (f *fakeStore) SetPresence(_ context.Context, id string, online bool, at time.Time) error {
	if u, ok := f.byID[id]; ok {
		u.IsOnline = online
		u.LastSeenAt = at
	}
	return nil
}

func (f *fakeStore) ListOthers(_ context.Context, excludeID string) ([]user.User, error) {
	var out []user.User
	for id, u := range f.byID {
		if id != excludeID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) Search(_ context.Context, excludeID, term string) ([]user.User, error) {
	return f.ListOthers(nil, excludeID)
}

type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(_ context.Context, ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func TestResolveExternalCreatesOnFirstContact(t *testing.T) {
	store := newFakeStore()
	svc := user.NewService(store, event.NopBus{})
	ctx := context.Background()

	id, err := svc.ResolveExternal(ctx, "idp|123", "Alice", "alice@example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := svc.ResolveExternal(ctx, "idp|123", "Alice", "alice@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, id, again, "resolution is stable across calls")
	assert.Len(t, store.byID, 1)
}

func TestUpsertFromProviderUpdatesProfile(t *testing.T) {
	store := newFakeStore()
	svc := user.NewService(store, event.NopBus{})
	ctx := context.Background()

	created, err := svc.UpsertFromProvider(ctx, "idp|9", "Bob", "bob@old.example", "")
	require.NoError(t, err)

	updated, err := svc.UpsertFromProvider(ctx, "idp|9", "Bobby", "bob@new.example", "pic.png")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Bobby", updated.Name)
	assert.Equal(t, "bob@new.example", updated.Email)
}

func TestUpsertFromProviderValidation(t *testing.T) {
	svc := user.NewService(newFakeStore(), event.NopBus{})

	_, err := svc.UpsertFromProvider(context.Background(), "", "Bob", "", "")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestUpsertFromProviderDefaultsName(t *testing.T) {
	svc := user.NewService(newFakeStore(), event.NopBus{})

	u, err := svc.UpsertFromProvider(context.Background(), "idp|7", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "User", u.Name)
}

func TestPresenceLifecycle(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := user.NewService(store, bus)
	ctx := context.Background()

	id, err := svc.ResolveExternal(ctx, "idp|42", "Carol", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetOffline(ctx, id))
	p, err := svc.GetPresence(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.IsOnline)
	offlineAt := p.LastSeenAt

	require.NoError(t, svc.Heartbeat(ctx, id))
	p, err = svc.GetPresence(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.IsOnline)
	assert.False(t, p.LastSeenAt.Before(offlineAt))

	require.Len(t, bus.events, 2)
	assert.Equal(t, event.TypePresenceUpdated, bus.events[0].Type)
}

func TestGetPresenceUnknownUser(t *testing.T) {
	svc := user.NewService(newFakeStore(), event.NopBus{})

	_, err := svc.GetPresence(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetProfileAbsentUserIsNil(t *testing.T) {
	svc := user.NewService(newFakeStore(), event.NopBus{})

	p, err := svc.GetProfile(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}
