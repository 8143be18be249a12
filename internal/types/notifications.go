package types

import "time"

// NotificationType categorizes persisted notifications and live push events.
// Trigger types mirror the job kinds; lifecycle types are dispatched inline
// from the hearing orchestrator.
type NotificationType string

const (
	NotificationHearingCreated  NotificationType = "hearing_created"
	NotificationHearingUpdated  NotificationType = "hearing_updated"
	NotificationHearingDeleted  NotificationType = "hearing_deleted"
	NotificationHearingReminder NotificationType = "hearing_reminder"
	NotificationHearingDayOf    NotificationType = "hearing_day_of"
	NotificationHearingFollowUp NotificationType = "hearing_follow_up"
)

// Notification is the durable per-recipient record. Offline recipients miss
// the live push but retrieve these later; the record is therefore written
// unconditionally on dispatch.
type Notification struct {
	ID     string           `json:"id" db:"id"`
	UserID string           `json:"user_id" db:"user_id"`
	Type   NotificationType `json:"type" db:"type"`

	Title   string `json:"title" db:"title"`
	Body    string `json:"body,omitempty" db:"body"`
	LinkURL string `json:"link_url,omitempty" db:"link_url"`

	// Free-form context for the client to deep-link from.
	CaseID    string `json:"case_id,omitempty" db:"case_id"`
	HearingID string `json:"hearing_id,omitempty" db:"hearing_id"`

	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsRead reports whether the recipient has acknowledged the notification.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// PushEvent is the payload published on a recipient's live channel. It is a
// transport envelope, not a stored entity; delivery is fire-and-forget.
type PushEvent struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty"`
	LinkURL   string           `json:"link_url,omitempty"`
	CaseID    string           `json:"case_id,omitempty"`
	HearingID string           `json:"hearing_id,omitempty"`
	SentAt    time.Time        `json:"sent_at"`
}
