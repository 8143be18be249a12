// Package scheduling implements the durable trigger pipeline for hearings:
// planning fire times, resolving recipients over the ownership graph, and the
// polling worker pool that executes claimed jobs.
package scheduling

import (
	"time"

	"counseldesk/internal/types"
)

// localTriggerHour is the wall-clock hour for day-of and next-day triggers in
// each recipient's timezone.
const localTriggerHour = 8

// PlannedTrigger is one computed fire instant. An empty UserID means the job
// fans out to the full recipient set at execution time (the reminder kind);
// otherwise the job targets exactly that recipient.
type PlannedTrigger struct {
	Kind   types.JobKind
	FireAt time.Time
	UserID string
}

// PlanTriggers computes the fire instants for a hearing against the resolved
// recipient timezones.
//
//   - Reminder: StartsAt minus ReminderOffsetMinutes, recipient-agnostic.
//     Planned only when the offset is positive.
//   - Day-of: 08:00 local time on the hearing's calendar date in each
//     recipient's timezone.
//   - Next-day: the same computation one calendar day later.
//
// Instants not strictly after now are dropped. All comparisons use the single
// now snapshot passed in, so entries straddling the instant of computation
// are filtered consistently. A muted (notify=false) or cancelled hearing
// plans nothing; stale job removal is the orchestrator's concern.
func PlanTriggers(h *types.Hearing, zones map[string]string, now time.Time) []PlannedTrigger {
	if h == nil || !h.Notify || h.Progress == types.HearingCancelled {
		return nil
	}

	var out []PlannedTrigger

	if h.ReminderOffsetMinutes > 0 {
		fireAt := h.StartsAt.Add(-time.Duration(h.ReminderOffsetMinutes) * time.Minute)
		if fireAt.After(now) {
			out = append(out, PlannedTrigger{Kind: types.JobKindReminder, FireAt: fireAt})
		}
	}

	for userID, zone := range zones {
		loc := loadLocation(zone)

		if dayOf := localMorning(h.StartsAt, loc, 0); dayOf.After(now) {
			out = append(out, PlannedTrigger{Kind: types.JobKindDayOf, FireAt: dayOf, UserID: userID})
		}
		if nextDay := localMorning(h.StartsAt, loc, 1); nextDay.After(now) {
			out = append(out, PlannedTrigger{Kind: types.JobKindNextDay, FireAt: nextDay, UserID: userID})
		}
	}

	return out
}

// localMorning returns 08:00:00.000 local time on the calendar date of
// instant in loc, shifted by dayOffset calendar days. time.Date normalizes
// day overflow, so month and year boundaries are handled for free.
func localMorning(instant time.Time, loc *time.Location, dayOffset int) time.Time {
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+dayOffset, localTriggerHour, 0, 0, 0, loc)
}

// loadLocation resolves an IANA zone name, falling back to UTC for empty or
// unknown zones. A bad zone in a user profile must never fail planning.
func loadLocation(zone string) *time.Location {
	if zone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}
