package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counseldesk/internal/types"
)

type mockPublisher struct {
	mu        sync.Mutex
	published []types.PushEvent
	byUser    map[string]int
	failFor   map[string]error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{byUser: map[string]int{}, failFor: map[string]error{}}
}

func (m *mockPublisher) Publish(_ context.Context, userID string, event types.PushEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[userID]; err != nil {
		return err
	}
	m.published = append(m.published, event)
	m.byUser[userID]++
	return nil
}

type mockNotificationStore struct {
	mu      sync.Mutex
	created []*types.Notification
	failFor map[string]error
}

func newMockNotificationStore() *mockNotificationStore {
	return &mockNotificationStore{failFor: map[string]error{}}
}

func (m *mockNotificationStore) Create(_ context.Context, n *types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[n.UserID]; err != nil {
		return err
	}
	m.created = append(m.created, n)
	return nil
}

func testMessage() Message {
	return Message{
		Type:      types.NotificationHearingReminder,
		Title:     "Upcoming hearing: Arraignment",
		Body:      "The hearing starts soon.",
		LinkURL:   "/cases/c-1",
		CaseID:    "c-1",
		HearingID: "h-1",
	}
}

func newTestDispatcher(pub *mockPublisher, store *mockNotificationStore) *Dispatcher {
	d := NewDispatcher(pub, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestDispatch_AllRecipients(t *testing.T) {
	pub := newMockPublisher()
	store := newMockNotificationStore()
	d := newTestDispatcher(pub, store)

	outcomes := d.Dispatch(context.Background(), []string{"u-1", "u-2", "u-3"}, testMessage())

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.Pushed)
		assert.True(t, o.Persisted)
		assert.NoError(t, o.Err)
	}
	assert.Len(t, store.created, 3)
	assert.Len(t, pub.published, 3)
}

func TestDispatch_PushFailureStillPersists(t *testing.T) {
	pub := newMockPublisher()
	pub.failFor["u-2"] = errors.New("redis down")
	store := newMockNotificationStore()
	d := newTestDispatcher(pub, store)

	outcomes := d.Dispatch(context.Background(), []string{"u-1", "u-2", "u-3"}, testMessage())

	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[1].Pushed)
	assert.True(t, outcomes[1].Persisted, "the durable record is written even when the push fails")
	assert.NoError(t, outcomes[1].Err, "a failed push alone is not a delivery failure")

	assert.Len(t, store.created, 3, "every recipient gets a persisted record")
}

func TestDispatch_PersistFailureDoesNotAbortBatch(t *testing.T) {
	pub := newMockPublisher()
	store := newMockNotificationStore()
	store.failFor["u-1"] = errors.New("insert failed")
	d := newTestDispatcher(pub, store)

	outcomes := d.Dispatch(context.Background(), []string{"u-1", "u-2"}, testMessage())

	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0].Err)
	assert.False(t, outcomes[0].Persisted)

	assert.NoError(t, outcomes[1].Err)
	assert.True(t, outcomes[1].Persisted, "one recipient's failure never aborts the rest")
	assert.Len(t, store.created, 1)
}

func TestDispatch_RecordContent(t *testing.T) {
	pub := newMockPublisher()
	store := newMockNotificationStore()
	d := newTestDispatcher(pub, store)

	msg := testMessage()
	d.Dispatch(context.Background(), []string{"u-1"}, msg)

	require.Len(t, store.created, 1)
	n := store.created[0]
	assert.Equal(t, "u-1", n.UserID)
	assert.Equal(t, msg.Type, n.Type)
	assert.Equal(t, msg.Title, n.Title)
	assert.Equal(t, msg.LinkURL, n.LinkURL)
	assert.Equal(t, msg.CaseID, n.CaseID)
	assert.Equal(t, msg.HearingID, n.HearingID)
	assert.Nil(t, n.ReadAt, "new records start unread")

	require.Len(t, pub.published, 1)
	assert.Equal(t, d.now(), pub.published[0].SentAt)
}

func TestDispatch_EmptyRecipients(t *testing.T) {
	pub := newMockPublisher()
	store := newMockNotificationStore()
	d := newTestDispatcher(pub, store)

	outcomes := d.Dispatch(context.Background(), nil, testMessage())

	assert.Empty(t, outcomes)
	assert.Empty(t, store.created)
}
