package hearings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"counseldesk/internal/notify"
	"counseldesk/internal/scheduling"
	"counseldesk/internal/types"
)

// JobStore is the planning-side job persistence the orchestrator drives:
// inserts for newly planned triggers and predicate cancellation before any
// re-plan.
type JobStore interface {
	Insert(ctx context.Context, job *types.ScheduledJob) error
	CancelForHearing(ctx context.Context, hearingID string) (int64, error)
}

// HearingStore reads and removes hearing records.
type HearingStore interface {
	HearingByID(ctx context.Context, id string) (*types.Hearing, error)
	Delete(ctx context.Context, id string) error
}

// MessageDispatcher fans a lifecycle notification out to a recipient set.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, recipientIDs []string, msg notify.Message) []notify.Outcome
}

// Orchestrator reacts to hearing lifecycle events. Each event follows the
// same shape: cancel any stale jobs, plan fresh triggers from the current
// hearing state, then notify the recipient set about the change.
//
// Job persistence errors fail the operation; notification dispatch is
// best-effort and never does. The scheduled jobs are the durable contract,
// the inline lifecycle notice is a courtesy.
type Orchestrator struct {
	jobs       JobStore
	hearings   HearingStore
	dir        scheduling.Directory
	resolver   *scheduling.RecipientResolver
	dispatcher MessageDispatcher
	logger     *slog.Logger

	now func() time.Time
}

// NewOrchestrator wires the hearing lifecycle orchestrator.
func NewOrchestrator(
	jobs JobStore,
	hearings HearingStore,
	dir scheduling.Directory,
	resolver *scheduling.RecipientResolver,
	dispatcher MessageDispatcher,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		jobs:       jobs,
		hearings:   hearings,
		dir:        dir,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OnHearingCreated validates the new hearing, plans its trigger jobs, and
// notifies the recipient set that the hearing was scheduled.
func (o *Orchestrator) OnHearingCreated(ctx context.Context, h *types.Hearing) error {
	if err := ValidateHearing(h); err != nil {
		return err
	}

	recipients, err := o.caseRecipients(ctx, h)
	if err != nil {
		return err
	}

	if err := o.planJobs(ctx, h, recipients); err != nil {
		return err
	}

	o.notifyLifecycle(ctx, recipients, h, types.NotificationHearingCreated,
		fmt.Sprintf("New hearing: %s", h.Title),
		fmt.Sprintf("A hearing %q was scheduled for %s.", h.Title, h.StartsAt.UTC().Format(time.RFC1123)),
	)
	return nil
}

// OnHearingUpdated re-plans after an edit: stale pending jobs are cancelled
// first, then the full trigger set is recomputed from the hearing's current
// state. A hearing muted or cancelled by the edit ends up with no jobs.
func (o *Orchestrator) OnHearingUpdated(ctx context.Context, h *types.Hearing) error {
	if err := ValidateHearing(h); err != nil {
		return err
	}

	cancelled, err := o.jobs.CancelForHearing(ctx, h.ID)
	if err != nil {
		return err
	}
	o.logger.InfoContext(ctx, "cancelled stale jobs for updated hearing",
		"hearing_id", h.ID,
		"cancelled", cancelled,
	)

	recipients, err := o.caseRecipients(ctx, h)
	if err != nil {
		return err
	}

	if err := o.planJobs(ctx, h, recipients); err != nil {
		return err
	}

	o.notifyLifecycle(ctx, recipients, h, types.NotificationHearingUpdated,
		fmt.Sprintf("Hearing updated: %s", h.Title),
		fmt.Sprintf("The hearing %q was updated. It is now set for %s.", h.Title, h.StartsAt.UTC().Format(time.RFC1123)),
	)
	return nil
}

// OnHearingDeleted cancels the hearing's pending jobs, notifies the recipient
// set, and removes the hearing record last. Ordering matters: once the row is
// gone, any job claimed mid-flight degrades to a no-op on its own re-check.
func (o *Orchestrator) OnHearingDeleted(ctx context.Context, hearingID string) error {
	h, err := o.hearings.HearingByID(ctx, hearingID)
	if err != nil {
		return err
	}
	if h == nil {
		return types.NewAppError(types.ErrCodeNotFoundHearing, "hearing not found", nil).
			WithDetails(map[string]any{"hearing_id": hearingID})
	}

	cancelled, err := o.jobs.CancelForHearing(ctx, hearingID)
	if err != nil {
		return err
	}
	o.logger.InfoContext(ctx, "cancelled jobs for deleted hearing",
		"hearing_id", hearingID,
		"cancelled", cancelled,
	)

	// Recipient resolution failures must not block the delete.
	c, lookupErr := o.dir.CaseByID(ctx, h.CaseID)
	if lookupErr != nil {
		o.logger.WarnContext(ctx, "case lookup failed during hearing delete",
			"hearing_id", hearingID,
			"case_id", h.CaseID,
			"error", lookupErr,
		)
	}
	recipients := o.resolver.Resolve(ctx, c, h)

	o.notifyLifecycle(ctx, recipients, h, types.NotificationHearingDeleted,
		fmt.Sprintf("Hearing removed: %s", h.Title),
		fmt.Sprintf("The hearing %q on %s was removed from the calendar.", h.Title, h.StartsAt.UTC().Format("Mon, 02 Jan 2006")),
	)

	return o.hearings.Delete(ctx, hearingID)
}

// caseRecipients loads the hearing's case and resolves the recipient set.
// A missing case is a hard error on create and update paths: the hearing
// would be unreachable from the ownership graph.
func (o *Orchestrator) caseRecipients(ctx context.Context, h *types.Hearing) ([]string, error) {
	c, err := o.dir.CaseByID(ctx, h.CaseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundCase, "case not found", nil).
			WithDetails(map[string]any{"case_id": h.CaseID})
	}
	return o.resolver.Resolve(ctx, c, h), nil
}

// planJobs computes the trigger set for the hearing and persists one job per
// trigger. Any insert failure surfaces: a partially planned hearing is
// repaired by the next update's cancel-then-replan, but the caller must know
// planning did not finish.
func (o *Orchestrator) planJobs(ctx context.Context, h *types.Hearing, recipients []string) error {
	zones := o.resolver.TimeZones(ctx, recipients)
	triggers := scheduling.PlanTriggers(h, zones, o.now())

	for _, tr := range triggers {
		job := &types.ScheduledJob{
			Kind:      tr.Kind,
			HearingID: h.ID,
			UserID:    tr.UserID,
			FireAt:    tr.FireAt,
		}
		if err := o.jobs.Insert(ctx, job); err != nil {
			return err
		}
	}

	o.logger.InfoContext(ctx, "planned hearing triggers",
		"hearing_id", h.ID,
		"jobs", len(triggers),
		"recipients", len(recipients),
	)
	return nil
}

// notifyLifecycle dispatches an inline lifecycle notification. Dispatch
// failures are already logged per recipient by the dispatcher; they never
// fail the lifecycle operation.
func (o *Orchestrator) notifyLifecycle(ctx context.Context, recipients []string, h *types.Hearing, typ types.NotificationType, title, body string) {
	if len(recipients) == 0 {
		return
	}

	o.dispatcher.Dispatch(ctx, recipients, notify.Message{
		Type:      typ,
		Title:     title,
		Body:      body,
		LinkURL:   fmt.Sprintf("/cases/%s", h.CaseID),
		CaseID:    h.CaseID,
		HearingID: h.ID,
	})
}
