package scheduling

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counseldesk/internal/config"
	"counseldesk/internal/types"
)

type mockRetentionStore struct {
	mu sync.Mutex

	purged     []time.Time
	archivable []*types.Notification
	deletedIDs []string
}

func (m *mockRetentionStore) PurgeDoneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, cutoff)
	return 3, nil
}

func (m *mockRetentionStore) ListReadBefore(_ context.Context, _ time.Time, limit int) ([]*types.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.archivable) {
		limit = len(m.archivable)
	}
	batch := m.archivable[:limit]
	m.archivable = m.archivable[limit:]
	return batch, nil
}

func (m *mockRetentionStore) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedIDs = append(m.deletedIDs, ids...)
	return int64(len(ids)), nil
}

func readNotification(id string, readAt time.Time) *types.Notification {
	return &types.Notification{
		ID:        id,
		UserID:    "u-1",
		Type:      types.NotificationHearingReminder,
		Title:     "Upcoming hearing",
		ReadAt:    &readAt,
		CreatedAt: readAt.Add(-time.Hour),
	}
}

func retentionConfig(archiveDir string) config.RetentionConfig {
	return config.RetentionConfig{
		Enabled:         true,
		Cadence:         time.Hour,
		JobTTL:          720 * time.Hour,
		NotificationTTL: 2160 * time.Hour,
		ArchiveDir:      archiveDir,
	}
}

func TestRetention_ArchivesThenDeletes(t *testing.T) {
	dir := t.TempDir()
	readAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store := &mockRetentionStore{
		archivable: []*types.Notification{
			readNotification("n-1", readAt),
			readNotification("n-2", readAt),
		},
	}

	r := NewRetention(store, retentionConfig(dir), testLogger())
	r.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, r.runOnce(context.Background()))

	assert.Equal(t, []string{"n-1", "n-2"}, store.deletedIDs)

	path := filepath.Join(dir, "notifications-20260601.jsonl.gz")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var ids []string
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		var n types.Notification
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &n))
		ids = append(ids, n.ID)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"n-1", "n-2"}, ids)
}

func TestRetention_PurgeCutoffs(t *testing.T) {
	store := &mockRetentionStore{}
	r := NewRetention(store, retentionConfig(""), testLogger())
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	require.NoError(t, r.runOnce(context.Background()))

	require.Len(t, store.purged, 1)
	assert.Equal(t, now.Add(-720*time.Hour), store.purged[0])
}

func TestRetention_NoArchiveDirStillDeletes(t *testing.T) {
	readAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store := &mockRetentionStore{
		archivable: []*types.Notification{readNotification("n-1", readAt)},
	}

	r := NewRetention(store, retentionConfig(""), testLogger())
	require.NoError(t, r.runOnce(context.Background()))

	assert.Equal(t, []string{"n-1"}, store.deletedIDs)
}

func TestRetention_DisabledReturnsImmediately(t *testing.T) {
	cfg := retentionConfig("")
	cfg.Enabled = false
	r := NewRetention(&mockRetentionStore{}, cfg, testLogger())

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("disabled retention should return without ticking")
	}
}

func TestRetention_RunStopsOnCancel(t *testing.T) {
	cfg := retentionConfig("")
	cfg.Cadence = 10 * time.Millisecond
	r := NewRetention(&mockRetentionStore{}, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retention did not stop after cancellation")
	}
}
