package reaction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
	"go-messenger/internal/message"
	"go-messenger/internal/reaction"
)

type fakeStore struct {
	reactions []reaction.Reaction
}

func (f *fakeStore) ListByMessage(_ context.Context, messageID string) ([]reaction.Reaction, error) {
	var out []reaction.Reaction
	for _, re := range f.reactions {
		if re.MessageID == messageID {
			out = append(out, re)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteByMessageUser(_ context.Context, messageID, userID string) error {
	kept := f.reactions[:0]
	for _, re := range f.reactions {
		if re.MessageID == messageID && re.UserID == userID {
			continue
		}
		kept = append(kept, re)
	}
	f.reactions = kept
	return nil
}

func (f *fakeStore) Insert(_ context.Context, re *reaction.Reaction) error {
	f.reactions = append(f.reactions, *re)
	return nil
}

type fakeMessages struct {
	known map[string]string // messageID -> conversationID
}

func (f *fakeMessages) Get(_ context.Context, id string) (*message.Message, error) {
	conv, ok := f.known[id]
	if !ok {
		return nil, nil
	}
	return &message.Message{ID: id, ConversationID: conv}, nil
}

func newService() (*reaction.Service, *fakeStore) {
	store := &fakeStore{}
	msgs := &fakeMessages{known: map[string]string{"m1": "conv1", "m2": "conv1"}}
	return reaction.NewService(store, msgs, event.NopBus{}), store
}

func TestToggleOnThenOff(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))
	assert.Len(t, store.reactions, 1)

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))
	assert.Empty(t, store.reactions, "same emoji twice toggles off")

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))
	assert.Len(t, store.reactions, 1, "third call toggles back on")
}

func TestToggleSwitchesEmoji(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))
	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "❤️"))

	require.Len(t, store.reactions, 1, "one active reaction per user per message")
	assert.Equal(t, "❤️", store.reactions[0].Emoji)
}

func TestToggleIsPerMessage(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))
	require.NoError(t, svc.Toggle(ctx, "alice", "m2", "👍"))

	assert.Len(t, store.reactions, 2, "reactions on different messages are independent")
}

func TestToggleValidation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	err := svc.Toggle(ctx, "alice", "m1", "")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	err = svc.Toggle(ctx, "alice", "missing", "👍")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListGroupsByEmoji(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))
	require.NoError(t, svc.Toggle(ctx, "bob", "m1", "❤️"))
	require.NoError(t, svc.Toggle(ctx, "carol", "m1", "👍"))

	groups, err := svc.List(ctx, "m1", "bob")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// First-occurrence order: 👍 arrived before ❤️.
	assert.Equal(t, "👍", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.False(t, groups[0].ReactedByViewer)

	assert.Equal(t, "❤️", groups[1].Emoji)
	assert.Equal(t, 1, groups[1].Count)
	assert.True(t, groups[1].ReactedByViewer)
}

func TestListAnonymousViewer(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	require.NoError(t, svc.Toggle(ctx, "alice", "m1", "👍"))

	groups, err := svc.List(ctx, "m1", "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.False(t, groups[0].ReactedByViewer)
}
