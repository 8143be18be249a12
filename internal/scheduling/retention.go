package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"counseldesk/internal/config"
	"counseldesk/internal/types"
)

// retentionBatchSize caps how many notifications one retention cycle archives,
// bounding memory and transaction size on backlogged databases.
const retentionBatchSize = 1000

// RetentionStore is the persistence surface the retention task needs.
type RetentionStore interface {
	PurgeDoneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListReadBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.Notification, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// Retention periodically prunes finished jobs and old read notifications.
// When an archive directory is configured, notifications are written to a
// gzip JSON-lines file before deletion; unread notifications are never
// touched.
type Retention struct {
	store  RetentionStore
	cfg    config.RetentionConfig
	logger *slog.Logger

	now func() time.Time
}

// NewRetention creates the retention task.
func NewRetention(store RetentionStore, cfg config.RetentionConfig, logger *slog.Logger) *Retention {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retention{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run executes a cleanup cycle on the configured cadence until the context
// is cancelled. Cycle failures are logged and retried on the next tick.
func (r *Retention) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.logger.Info("retention disabled")
		return nil
	}

	ticker := time.NewTicker(r.cfg.Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "retention cycle failed", "error", err)
			}
		}
	}
}

// runOnce performs one cleanup cycle.
func (r *Retention) runOnce(ctx context.Context) error {
	now := r.now()

	purged, err := r.store.PurgeDoneBefore(ctx, now.Add(-r.cfg.JobTTL))
	if err != nil {
		return fmt.Errorf("purging done jobs: %w", err)
	}

	archived, deleted, err := r.archiveNotifications(ctx, now.Add(-r.cfg.NotificationTTL))
	if err != nil {
		return fmt.Errorf("archiving notifications: %w", err)
	}

	r.logger.InfoContext(ctx, "retention cycle complete",
		"jobs_purged", purged,
		"notifications_archived", archived,
		"notifications_deleted", deleted,
	)
	return nil
}

// archiveNotifications drains read notifications older than the cutoff in
// batches. Each batch is archived before it is deleted, so a crash between
// the two steps duplicates archive entries rather than losing records.
func (r *Retention) archiveNotifications(ctx context.Context, cutoff time.Time) (archived, deleted int64, err error) {
	for {
		batch, err := r.store.ListReadBefore(ctx, cutoff, retentionBatchSize)
		if err != nil {
			return archived, deleted, err
		}
		if len(batch) == 0 {
			return archived, deleted, nil
		}

		if r.cfg.ArchiveDir != "" {
			if err := r.writeArchive(batch); err != nil {
				return archived, deleted, err
			}
			archived += int64(len(batch))
		}

		ids := make([]string, len(batch))
		for i, n := range batch {
			ids[i] = n.ID
		}
		count, err := r.store.DeleteByIDs(ctx, ids)
		if err != nil {
			return archived, deleted, err
		}
		deleted += count

		if len(batch) < retentionBatchSize {
			return archived, deleted, nil
		}
	}
}

// writeArchive appends the batch as gzip-compressed JSON lines to a dated
// file in the archive directory.
func (r *Retention) writeArchive(batch []*types.Notification) error {
	if err := os.MkdirAll(r.cfg.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	name := fmt.Sprintf("notifications-%s.jsonl.gz", r.now().Format("20060102"))
	path := filepath.Join(r.cfg.ArchiveDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening archive file: %w", err)
	}
	defer f.Close()

	// Each batch gets its own gzip member; concatenated members form a
	// valid gzip stream, so appending is safe.
	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	for _, n := range batch {
		if err := enc.Encode(n); err != nil {
			zw.Close()
			return fmt.Errorf("encoding notification %s: %w", n.ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing archive file: %w", err)
	}

	return f.Sync()
}
