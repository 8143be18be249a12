package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"counseldesk/internal/notify"
	"counseldesk/internal/types"
)

// HearingSource looks up the live hearing row at execution time. Returns
// (nil, nil) when the hearing no longer exists.
type HearingSource interface {
	HearingByID(ctx context.Context, id string) (*types.Hearing, error)
}

// MessageDispatcher is the notification fan-out the handlers invoke.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, recipientIDs []string, msg notify.Message) []notify.Outcome
}

// HandlerSet binds the three job kinds to their execution logic. Every
// handler re-reads the hearing first: a job may have been claimed moments
// before the hearing was edited, muted, or deleted, and in those races the
// claimed job must degrade to a no-op rather than notify about stale state.
type HandlerSet struct {
	hearings   HearingSource
	dir        Directory
	resolver   *RecipientResolver
	dispatcher MessageDispatcher
	logger     *slog.Logger
}

// NewHandlerSet creates the job handlers for the worker pool.
func NewHandlerSet(
	hearings HearingSource,
	dir Directory,
	resolver *RecipientResolver,
	dispatcher MessageDispatcher,
	logger *slog.Logger,
) *HandlerSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandlerSet{
		hearings:   hearings,
		dir:        dir,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handlers returns the kind -> handler routing table for the pool.
func (s *HandlerSet) Handlers() map[types.JobKind]Handler {
	return map[types.JobKind]Handler{
		types.JobKindReminder: s.HandleReminder,
		types.JobKindDayOf:    s.HandleDayOf,
		types.JobKindNextDay:  s.HandleNextDay,
	}
}

// HandleReminder fans the pre-hearing reminder out to the full recipient
// set. The set is resolved now, not at planning time, so ownership changes
// since the hearing was scheduled are honored.
func (s *HandlerSet) HandleReminder(ctx context.Context, job *types.ScheduledJob) error {
	h, err := s.liveHearing(ctx, job)
	if err != nil || h == nil {
		return err
	}

	c, err := s.dir.CaseByID(ctx, h.CaseID)
	if err != nil {
		// Infrastructure failure, not a broken edge: retry via lease release.
		return fmt.Errorf("looking up case %s: %w", h.CaseID, err)
	}

	recipients := s.resolver.Resolve(ctx, c, h)
	if len(recipients) == 0 {
		s.logger.WarnContext(ctx, "reminder resolved no recipients",
			"hearing_id", h.ID,
			"case_id", h.CaseID,
		)
		return nil
	}

	s.dispatcher.Dispatch(ctx, recipients, notify.Message{
		Type:      types.NotificationHearingReminder,
		Title:     fmt.Sprintf("Upcoming hearing: %s", h.Title),
		Body:      fmt.Sprintf("The hearing %q starts at %s.", h.Title, h.StartsAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")),
		LinkURL:   caseLink(h.CaseID),
		CaseID:    h.CaseID,
		HearingID: h.ID,
	})
	return nil
}

// HandleDayOf sends the 08:00 local-time alert to the single recipient the
// job was planned for, with the start time rendered in that recipient's
// timezone.
func (s *HandlerSet) HandleDayOf(ctx context.Context, job *types.ScheduledJob) error {
	h, err := s.liveHearing(ctx, job)
	if err != nil || h == nil {
		return err
	}

	localStart := h.StartsAt.In(s.recipientLocation(ctx, job.UserID))
	s.dispatcher.Dispatch(ctx, []string{job.UserID}, notify.Message{
		Type:      types.NotificationHearingDayOf,
		Title:     fmt.Sprintf("Hearing today: %s", h.Title),
		Body:      fmt.Sprintf("The hearing %q takes place today at %s.", h.Title, localStart.Format("15:04")),
		LinkURL:   caseLink(h.CaseID),
		CaseID:    h.CaseID,
		HearingID: h.ID,
	})
	return nil
}

// HandleNextDay sends the next-day follow-up to its single recipient.
func (s *HandlerSet) HandleNextDay(ctx context.Context, job *types.ScheduledJob) error {
	h, err := s.liveHearing(ctx, job)
	if err != nil || h == nil {
		return err
	}

	s.dispatcher.Dispatch(ctx, []string{job.UserID}, notify.Message{
		Type:      types.NotificationHearingFollowUp,
		Title:     fmt.Sprintf("Follow up: %s", h.Title),
		Body:      fmt.Sprintf("The hearing %q was held yesterday. Record its outcome and next steps.", h.Title),
		LinkURL:   caseLink(h.CaseID),
		CaseID:    h.CaseID,
		HearingID: h.ID,
	})
	return nil
}

// liveHearing re-reads the hearing and applies the stale-reference rules:
// a deleted hearing, a muted one, or one cancelled since planning all yield
// (nil, nil), which the callers turn into a completed no-op. Only lookup
// failures propagate as retryable errors.
func (s *HandlerSet) liveHearing(ctx context.Context, job *types.ScheduledJob) (*types.Hearing, error) {
	h, err := s.hearings.HearingByID(ctx, job.HearingID)
	if err != nil {
		return nil, fmt.Errorf("looking up hearing %s: %w", job.HearingID, err)
	}
	if h == nil {
		s.logger.InfoContext(ctx, "hearing gone, dropping job",
			"job_id", job.ID,
			"hearing_id", job.HearingID,
		)
		return nil, nil
	}
	if !h.Notify || h.Progress == types.HearingCancelled {
		s.logger.InfoContext(ctx, "hearing notifications disabled, dropping job",
			"job_id", job.ID,
			"hearing_id", job.HearingID,
			"notify", h.Notify,
			"progress", string(h.Progress),
		)
		return nil, nil
	}
	return h, nil
}

// recipientLocation resolves a recipient's timezone for rendering, falling
// back to UTC.
func (s *HandlerSet) recipientLocation(ctx context.Context, userID string) *time.Location {
	zones := s.resolver.TimeZones(ctx, []string{userID})
	return loadLocation(zones[userID])
}

// caseLink is the client deep link attached to hearing notifications.
func caseLink(caseID string) string {
	return fmt.Sprintf("/cases/%s", caseID)
}
