package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counseldesk/internal/types"
)

// NotificationRepository provides data access for the notifications table.
// Records are created by the dispatcher (one per recipient) and mutated or
// deleted only by the recipient.
type NotificationRepository struct {
	db DBTX
}

// NewNotificationRepository creates a new NotificationRepository backed by the
// given database connection (pool or transaction).
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification record. A missing ID is generated; CreatedAt
// defaults to NOW() when zero.
func (r *NotificationRepository) Create(ctx context.Context, n *types.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO notifications
		 (id, user_id, type, title, body, link_url, case_id, hearing_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, NULLIF($8, '')::uuid, COALESCE($9, NOW()))
		 RETURNING created_at`,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Body,
		n.LinkURL,
		n.CaseID,
		n.HearingID,
		nilIfZeroTime(n.CreatedAt),
	).Scan(&n.CreatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create notification", err)
	}
	return nil
}

// ListByUser returns the recipient's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*types.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, title, body, link_url,
		        COALESCE(case_id::text, ''), COALESCE(hearing_id::text, ''),
		        read_at, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notifications", err)
	}
	defer rows.Close()

	var results []*types.Notification
	for rows.Next() {
		var (
			n        types.Notification
			typeName string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typeName, &n.Title, &n.Body, &n.LinkURL,
			&n.CaseID, &n.HearingID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notification", err)
		}
		n.Type = types.NotificationType(typeName)
		results = append(results, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating notifications", err)
	}

	return results, nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count unread notifications", err)
	}
	return count, nil
}

// MarkRead sets read_at for a notification owned by the given user. The
// user_id predicate prevents marking another recipient's record.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundNotification, "notification not found or already read", nil)
	}
	return nil
}

// Delete removes a notification owned by the given user.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete notification", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundNotification, "notification not found", nil)
	}
	return nil
}

// ListReadBefore returns read notifications created before the cutoff, oldest
// first, for retention archiving. The batch is capped by limit.
func (r *NotificationRepository) ListReadBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, title, body, link_url,
		        COALESCE(case_id::text, ''), COALESCE(hearing_id::text, ''),
		        read_at, created_at
		 FROM notifications
		 WHERE read_at IS NOT NULL AND created_at < $1
		 ORDER BY created_at
		 LIMIT $2`,
		cutoff,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notifications for retention", err)
	}
	defer rows.Close()

	var results []*types.Notification
	for rows.Next() {
		var (
			n        types.Notification
			typeName string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typeName, &n.Title, &n.Body, &n.LinkURL,
			&n.CaseID, &n.HearingID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notification", err)
		}
		n.Type = types.NotificationType(typeName)
		results = append(results, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating notifications", err)
	}

	return results, nil
}

// DeleteByIDs removes the given notifications after they have been archived.
// Returns the count of deleted rows.
func (r *NotificationRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM notifications WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete archived notifications", err)
	}
	return tag.RowsAffected(), nil
}

// nilIfZeroTime returns nil for the zero time so SQL COALESCE defaults apply.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
