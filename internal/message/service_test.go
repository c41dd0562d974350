package message_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-messenger/internal/apperr"
	"go-messenger/internal/event"
	"go-messenger/internal/message"
	"go-messenger/internal/user"
)

// fakeStore mimics the repository transaction: storing a message also
// records the conversation's last-message pointer and the sender's cursor.
type fakeStore struct {
	messages    map[string]*message.Message
	order       []string
	lastMessage map[string]string // convID -> messageID
	cursors     map[string]string // convID/userID -> messageID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:    make(map[string]*message.Message),
		lastMessage: make(map[string]string),
		cursors:     make(map[string]string),
	}
}

func (f *fakeStore) Create(_ context.Context, m *message.Message) error {
	cp := *m
	f.messages[m.ID] = &cp
	f.order = append(f.order, m.ID)
	f.lastMessage[m.ConversationID] = m.ID
	f.cursors[m.ConversationID+"/"+m.SenderID] = m.ID
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*message.Message, error) {
	return f.messages[id], nil
}

func (f *fakeStore) ListByConversation(_ context.Context, conversationID string) ([]message.Message, error) {
	var out []message.Message
	for _, id := range f.order {
		if f.messages[id].ConversationID == conversationID {
			out = append(out, *f.messages[id])
		}
	}
	return out, nil
}

func (f *fakeStore) MarkDeleted(_ context.Context, id string) error {
	if m, ok := f.messages[id]; ok {
		m.Deleted = true
	}
	return nil
}

type fakeMembers struct {
	members map[string]bool // convID/userID
}

func (f *fakeMembers) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	return f.members[conversationID+"/"+userID], nil
}

type fakeProfiles struct{}

func (fakeProfiles) GetProfile(_ context.Context, userID string) (*user.Profile, error) {
	return &user.Profile{ID: userID, Name: userID}, nil
}

type fakeBlobs struct {
	fail bool
}

func (f *fakeBlobs) ResolveURL(_ context.Context, key string) (string, error) {
	if f.fail {
		return "", errors.New("blob store unavailable")
	}
	return "https://blobs.test/" + key, nil
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

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

func newService(t *testing.T) (*message.Service, *fakeStore, *fakeMembers, *fakeBlobs, *recordingBus) {
	t.Helper()
	store := newFakeStore()
	members := &fakeMembers{members: map[string]bool{
		"conv1/alice": true,
		"conv1/bob":   true,
	}}
	blobs := &fakeBlobs{}
	bus := &recordingBus{}
	svc := message.NewService(store, members, fakeProfiles{}, blobs, bus)
	return svc, store, members, blobs, bus
}

func TestSendRejectsNonParticipants(t *testing.T) {
	svc, store, _, _, _ := newService(t)

	_, err := svc.Send(context.Background(), "mallory", "conv1", "hi", "", "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Empty(t, store.messages)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	svc, _, _, _, _ := newService(t)

	_, err := svc.Send(context.Background(), "alice", "conv1", "", "", "")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestSendAllowsAttachmentOnlyMessage(t *testing.T) {
	svc, _, _, _, _ := newService(t)

	m, err := svc.Send(context.Background(), "alice", "conv1", "", "key-1", "cat.png")
	require.NoError(t, err)
	assert.Empty(t, m.Body)
	assert.Equal(t, "key-1", m.AttachmentKey)
}

func TestSendUpdatesPointerAndCursor(t *testing.T) {
	svc, store, _, _, bus := newService(t)

	m, err := svc.Send(context.Background(), "alice", "conv1", "hi", "", "")
	require.NoError(t, err)

	assert.Equal(t, m.ID, store.lastMessage["conv1"], "conversation preview pointer follows every send")
	assert.Equal(t, m.ID, store.cursors["conv1/alice"], "a sender has read their own message")
	assert.Equal(t, []string{event.TypeMessageCreated}, bus.types())
}

func TestListEnrichesSenderAndAttachment(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "alice", "conv1", "look", "key-9", "dog.png")
	require.NoError(t, err)

	views, err := svc.List(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Sender)
	assert.Equal(t, "alice", views[0].Sender.ID)
	assert.Equal(t, "https://blobs.test/key-9", views[0].FileURL)
}

func TestListDegradesWhenBlobStoreFails(t *testing.T) {
	svc, _, _, blobs, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "alice", "conv1", "look", "key-9", "dog.png")
	require.NoError(t, err)

	blobs.fail = true
	views, err := svc.List(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, views, 1, "a message with an unresolvable attachment is still returned")
	assert.Empty(t, views[0].FileURL)
	assert.Equal(t, "look", views[0].Body)
}

func TestDeleteRequiresSender(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	err := svc.Delete(ctx, "alice", "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	m, err := svc.Send(ctx, "alice", "conv1", "hi", "", "")
	require.NoError(t, err)

	err = svc.Delete(ctx, "bob", m.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestDeleteSuppressesContentEverywhere(t *testing.T) {
	svc, store, _, _, bus := newService(t)
	ctx := context.Background()

	m, err := svc.Send(ctx, "alice", "conv1", "secret", "key-3", "doc.pdf")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "alice", m.ID))

	// Row survives with the flag set; content never surfaces again.
	raw := store.messages[m.ID]
	assert.True(t, raw.Deleted)

	views, err := svc.List(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Deleted)
	assert.Empty(t, views[0].Body)
	assert.Empty(t, views[0].AttachmentName)
	assert.Empty(t, views[0].FileURL)

	assert.Equal(t, []string{event.TypeMessageCreated, event.TypeMessageDeleted}, bus.types())
}

func TestListKeepsInsertionOrder(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, "alice", "conv1", body, "", "")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	views, err := svc.List(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "one", views[0].Body)
	assert.Equal(t, "three", views[2].Body)
}
