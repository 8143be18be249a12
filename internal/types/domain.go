package types

import "time"

// HearingProgress tracks the lifecycle state of a hearing on the court calendar.
type HearingProgress string

const (
	HearingScheduled HearingProgress = "scheduled"
	HearingAdjourned HearingProgress = "adjourned"
	HearingCompleted HearingProgress = "completed"
	HearingCancelled HearingProgress = "cancelled"
)

// Bounds for hearing scheduling fields. Offsets beyond a week or durations
// beyond a day are rejected at validation time.
const (
	MaxReminderOffsetMinutes = 10080 // 7 days
	MinDurationMinutes       = 1
	MaxDurationMinutes       = 1440 // 24 hours
)

// Hearing is the calendar entity that drives all scheduled triggers.
// StartsAt is always stored in UTC; per-recipient local times are derived
// at planning time from each recipient's timezone.
type Hearing struct {
	ID     string `json:"id" db:"id"`
	CaseID string `json:"case_id" db:"case_id" validate:"required"`

	// LawyerID is the primary handler. SecondaryLawyerID is optional and
	// contributes one more recipient when set.
	LawyerID          string  `json:"lawyer_id" db:"lawyer_id" validate:"required"`
	SecondaryLawyerID *string `json:"secondary_lawyer_id,omitempty" db:"secondary_lawyer_id"`

	Title       string `json:"title" db:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" db:"description" validate:"max=2000"`
	Location    string `json:"location,omitempty" db:"location" validate:"max=200"`

	StartsAt        time.Time       `json:"starts_at" db:"starts_at" validate:"required"`
	DurationMinutes int             `json:"duration_minutes" db:"duration_minutes" validate:"min=1,max=1440"`
	Progress        HearingProgress `json:"progress" db:"progress" validate:"required,oneof=scheduled adjourned completed cancelled"`

	// Notify gates all trigger planning. ReminderOffsetMinutes selects how
	// long before StartsAt the reminder fires; zero disables the reminder
	// while leaving the day-of and next-day triggers in place.
	Notify                bool `json:"notify" db:"notify"`
	ReminderOffsetMinutes int  `json:"reminder_offset_minutes" db:"reminder_offset_minutes" validate:"min=0,max=10080"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Case ties a client and a handling lawyer to an owning user account.
// Only the fields the scheduling subsystem walks are modeled here; the full
// case record lives with the practice-management core.
type Case struct {
	ID          string `json:"id" db:"id"`
	OwnerUserID string `json:"owner_user_id" db:"owner_user_id"`
	ClientID    string `json:"client_id" db:"client_id"`
	LawyerID    string `json:"lawyer_id" db:"lawyer_id"`
	Title       string `json:"title" db:"title"`
}

// Client is a represented party. Ownership points at the user account that
// manages the client record and therefore receives its notifications.
type Client struct {
	ID          string `json:"id" db:"id"`
	OwnerUserID string `json:"owner_user_id" db:"owner_user_id"`
	Name        string `json:"name" db:"name"`
}

// Lawyer is a practitioner profile owned by a user account.
type Lawyer struct {
	ID          string `json:"id" db:"id"`
	OwnerUserID string `json:"owner_user_id" db:"owner_user_id"`
	Name        string `json:"name" db:"name"`
}

// User is the notification endpoint of the ownership graph. TimeZone is an
// IANA zone name; an empty or unloadable zone falls back to UTC.
type User struct {
	ID       string `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	TimeZone string `json:"timezone" db:"timezone"`
}
