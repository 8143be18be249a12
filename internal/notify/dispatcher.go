// Package notify delivers notifications to resolved recipient sets: a
// best-effort live push on each recipient's channel plus an unconditional
// durable record, so offline recipients catch up later.
package notify

import (
	"context"
	"log/slog"
	"time"

	"counseldesk/internal/types"
)

// Publisher pushes a live event onto one recipient's channel. Delivery is
// fire-and-forget: no confirmation is expected and an offline recipient
// simply misses the live event.
type Publisher interface {
	Publish(ctx context.Context, userID string, event types.PushEvent) error
}

// Store persists notification records.
type Store interface {
	Create(ctx context.Context, n *types.Notification) error
}

// Message is the content dispatched to a recipient set. The dispatcher turns
// it into one PushEvent and one Notification per recipient.
type Message struct {
	Type      types.NotificationType
	Title     string
	Body      string
	LinkURL   string
	CaseID    string
	HearingID string
}

// Outcome records the per-recipient result of a dispatch.
type Outcome struct {
	UserID    string
	Pushed    bool
	Persisted bool
	Err       error
}

// Dispatcher fans a message out to a recipient set.
type Dispatcher struct {
	push   Publisher
	store  Store
	logger *slog.Logger

	now func() time.Time
}

// NewDispatcher creates a Dispatcher over the given push publisher and
// notification store.
func NewDispatcher(push Publisher, store Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		push:   push,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch delivers the message to every recipient: live push first
// (best-effort), then the durable record (unconditional). A failure for one
// recipient never aborts the rest; failures are recorded in the outcomes and
// logged. The persisted record is the source of truth: a recipient whose
// push failed but whose record was written is considered delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientIDs []string, msg Message) []Outcome {
	outcomes := make([]Outcome, 0, len(recipientIDs))

	for _, userID := range recipientIDs {
		outcome := Outcome{UserID: userID}

		event := types.PushEvent{
			Type:      msg.Type,
			Title:     msg.Title,
			Body:      msg.Body,
			LinkURL:   msg.LinkURL,
			CaseID:    msg.CaseID,
			HearingID: msg.HearingID,
			SentAt:    d.now(),
		}
		if err := d.push.Publish(ctx, userID, event); err != nil {
			d.logger.WarnContext(ctx, "live push failed",
				"user_id", userID,
				"type", string(msg.Type),
				"error", err,
			)
		} else {
			outcome.Pushed = true
		}

		n := &types.Notification{
			UserID:    userID,
			Type:      msg.Type,
			Title:     msg.Title,
			Body:      msg.Body,
			LinkURL:   msg.LinkURL,
			CaseID:    msg.CaseID,
			HearingID: msg.HearingID,
		}
		if err := d.store.Create(ctx, n); err != nil {
			outcome.Err = err
			d.logger.ErrorContext(ctx, "failed to persist notification",
				"user_id", userID,
				"type", string(msg.Type),
				"error", err,
			)
		} else {
			outcome.Persisted = true
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
