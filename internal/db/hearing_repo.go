package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"counseldesk/internal/types"
)

// HearingRepository reads and removes hearing records. The hearings table is
// owned by the practice-management core; this repository is the narrow view
// the scheduling subsystem consumes: lookups for job handlers (which must
// detect deleted or muted hearings) and the final delete in the hearing
// removal flow.
type HearingRepository struct {
	db DBTX
}

// NewHearingRepository creates a new HearingRepository backed by the given
// database connection (pool or transaction).
func NewHearingRepository(db DBTX) *HearingRepository {
	return &HearingRepository{db: db}
}

// HearingByID returns the hearing, or (nil, nil) when it no longer exists.
// The nil-without-error contract lets job handlers treat a vanished hearing
// as a benign no-op rather than a failure.
func (r *HearingRepository) HearingByID(ctx context.Context, id string) (*types.Hearing, error) {
	var (
		h        types.Hearing
		progress string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, case_id, lawyer_id, secondary_lawyer_id,
		        title, COALESCE(description, ''), COALESCE(location, ''),
		        starts_at, duration_minutes, progress, notify,
		        reminder_offset_minutes, created_at, updated_at
		 FROM hearings
		 WHERE id = $1`,
		id,
	).Scan(
		&h.ID,
		&h.CaseID,
		&h.LawyerID,
		&h.SecondaryLawyerID,
		&h.Title,
		&h.Description,
		&h.Location,
		&h.StartsAt,
		&h.DurationMinutes,
		&progress,
		&h.Notify,
		&h.ReminderOffsetMinutes,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get hearing", err)
	}

	h.Progress = types.HearingProgress(progress)
	return &h, nil
}

// Delete removes the hearing record. Deleting an already-removed hearing is
// not an error; the delete flow may race with itself across processes.
func (r *HearingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM hearings WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete hearing", err)
	}
	return nil
}
