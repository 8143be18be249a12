package types

import "time"

// JobKind identifies which handler executes a claimed job.
type JobKind string

const (
	// JobKindReminder fires ReminderOffsetMinutes before the hearing starts.
	// It carries no recipient: the recipient set is resolved at execution
	// time, so ownership changes between planning and firing are honored.
	JobKindReminder JobKind = "reminder"

	// JobKindDayOf fires at 08:00 local time on the hearing's calendar date
	// in one recipient's timezone. One job per recipient, resolved at
	// planning time.
	JobKindDayOf JobKind = "day-of-8am"

	// JobKindNextDay fires at 08:00 local time one calendar day after the
	// hearing, per recipient, resolved at planning time.
	JobKindNextDay JobKind = "next-day-8am"
)

// Job execution states persisted in the scheduled_jobs table.
const (
	JobStatusPending = "pending"
	JobStatusDone    = "done"
)

// ScheduledJob is a durable trigger waiting to fire. A job with an empty
// UserID fans out to the full recipient set at execution time; a job with a
// UserID targets exactly that recipient.
//
// At most one unclaimed job exists per (hearing, kind, user) tuple. The
// invariant is maintained by cancel-before-insert on every re-plan, not by a
// uniqueness constraint, so that a claimed in-flight job never blocks a
// re-plan.
type ScheduledJob struct {
	ID        string    `json:"id" db:"id"`
	Kind      JobKind   `json:"kind" db:"kind"`
	HearingID string    `json:"hearing_id" db:"hearing_id"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	FireAt    time.Time `json:"fire_at" db:"fire_at"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
