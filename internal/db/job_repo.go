package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counseldesk/internal/types"
)

// JobRepository provides data access for the scheduled_jobs table. It is the
// durable job store behind the scheduler: inserts at planning time, an atomic
// lease-based claim for the worker pool, and predicate cancellation for the
// cancel-then-replan flow.
type JobRepository struct {
	db DBTX
}

// NewJobRepository creates a new JobRepository backed by the given database
// connection (pool or transaction).
func NewJobRepository(db DBTX) *JobRepository {
	return &JobRepository{db: db}
}

// Insert appends a job. It never overwrites; uniqueness per
// (hearing, kind, user) is maintained by CancelForHearing before re-planning,
// not by a constraint, so an in-flight claimed job never blocks a re-plan.
func (r *JobRepository) Insert(ctx context.Context, job *types.ScheduledJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO scheduled_jobs (id, kind, hearing_id, user_id, fire_at, status)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, 'pending')`,
		job.ID,
		string(job.Kind),
		job.HearingID,
		job.UserID,
		job.FireAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert scheduled job", err)
	}
	return nil
}

// CancelForHearing deletes every pending, unclaimed job belonging to the
// hearing. Jobs currently under an active lease are left alone: a claimed job
// mid-execution is allowed to complete (at-least-once semantics), and its
// handler re-checks the hearing before doing anything. Cancelling zero
// matches is not an error.
func (r *JobRepository) CancelForHearing(ctx context.Context, hearingID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM scheduled_jobs
		 WHERE hearing_id = $1
		   AND status = 'pending'
		   AND (leased_until IS NULL OR leased_until < NOW())`,
		hearingID,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to cancel jobs for hearing", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimDue atomically claims up to limit due, unclaimed jobs for the given
// worker, marking each with a lease that expires after leaseTTL. FOR UPDATE
// SKIP LOCKED guarantees two concurrent workers never claim the same row; an
// expired lease (crashed worker) makes the row claimable again.
//
// Results come back in roughly earliest-first order. No stronger ordering is
// promised.
func (r *JobRepository) ClaimDue(ctx context.Context, now time.Time, limit int, owner string, leaseTTL time.Duration) ([]*types.ScheduledJob, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`UPDATE scheduled_jobs SET
			lease_owner = $1,
			leased_until = $2,
			attempts = attempts + 1
		 WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE status = 'pending'
			  AND fire_at <= $3
			  AND (leased_until IS NULL OR leased_until < $3)
			ORDER BY fire_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, kind, hearing_id, COALESCE(user_id::text, ''), fire_at, attempts, created_at`,
		owner,
		now.Add(leaseTTL),
		now,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to claim due jobs", err)
	}
	defer rows.Close()

	var jobs []*types.ScheduledJob
	for rows.Next() {
		var (
			j    types.ScheduledJob
			kind string
		)
		if err := rows.Scan(&j.ID, &kind, &j.HearingID, &j.UserID, &j.FireAt, &j.Attempts, &j.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan claimed job", err)
		}
		j.Kind = types.JobKind(kind)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating claimed jobs", err)
	}

	return jobs, nil
}

// Complete marks a job permanently done and clears its lease. Completing a
// job that was cancelled underneath the worker affects zero rows, which is
// not an error: the cancel already achieved the terminal state.
func (r *JobRepository) Complete(ctx context.Context, jobID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE scheduled_jobs SET
			status = 'done',
			lease_owner = NULL,
			leased_until = NULL
		 WHERE id = $1`,
		jobID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to complete job", err)
	}
	return nil
}

// Release drops a job's lease early so it becomes claimable on the next poll.
// Used after transient handler failures instead of waiting out the lease.
func (r *JobRepository) Release(ctx context.Context, jobID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE scheduled_jobs SET
			lease_owner = NULL,
			leased_until = NULL
		 WHERE id = $1 AND status = 'pending'`,
		jobID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to release job lease", err)
	}
	return nil
}

// PurgeDoneBefore hard-deletes finished jobs older than the cutoff. Used by
// the retention task. Returns the count of deleted rows.
func (r *JobRepository) PurgeDoneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM scheduled_jobs WHERE status = 'done' AND fire_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge done jobs", err)
	}
	return tag.RowsAffected(), nil
}
