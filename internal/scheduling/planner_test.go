package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counseldesk/internal/types"
)

func plannableHearing(startsAt time.Time, offsetMinutes int) *types.Hearing {
	return &types.Hearing{
		ID:                    "h-1",
		CaseID:                "c-1",
		LawyerID:              "l-1",
		Title:                 "Preliminary hearing",
		StartsAt:              startsAt,
		DurationMinutes:       60,
		Progress:              types.HearingScheduled,
		Notify:                true,
		ReminderOffsetMinutes: offsetMinutes,
	}
}

func triggersByKind(triggers []PlannedTrigger, kind types.JobKind) []PlannedTrigger {
	var out []PlannedTrigger
	for _, tr := range triggers {
		if tr.Kind == kind {
			out = append(out, tr)
		}
	}
	return out
}

func TestPlanTriggers_ReminderOffset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)

	h := plannableHearing(startsAt, 90)
	triggers := PlanTriggers(h, nil, now)

	reminders := triggersByKind(triggers, types.JobKindReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, startsAt.Add(-90*time.Minute), reminders[0].FireAt)
	assert.Empty(t, reminders[0].UserID, "reminder jobs are recipient-agnostic")
}

func TestPlanTriggers_ZeroOffsetDisablesReminder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := plannableHearing(time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC), 0)

	triggers := PlanTriggers(h, map[string]string{"u-1": "UTC"}, now)

	assert.Empty(t, triggersByKind(triggers, types.JobKindReminder))
	assert.Len(t, triggersByKind(triggers, types.JobKindDayOf), 1)
	assert.Len(t, triggersByKind(triggers, types.JobKindNextDay), 1)
}

func TestPlanTriggers_LocalMorningPerZone(t *testing.T) {
	// March 15 2026: America/New_York is on EDT (UTC-4).
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)

	h := plannableHearing(startsAt, 0)
	zones := map[string]string{"u-ny": "America/New_York"}
	triggers := PlanTriggers(h, zones, now)

	dayOf := triggersByKind(triggers, types.JobKindDayOf)
	require.Len(t, dayOf, 1)
	assert.Equal(t, "u-ny", dayOf[0].UserID)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), dayOf[0].FireAt.UTC(),
		"08:00 EDT is 12:00 UTC")

	nextDay := triggersByKind(triggers, types.JobKindNextDay)
	require.Len(t, nextDay, 1)
	assert.Equal(t, time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC), nextDay[0].FireAt.UTC())
}

func TestPlanTriggers_CalendarDateDependsOnZone(t *testing.T) {
	// 02:00 UTC on June 10 is still June 9 in Los Angeles (UTC-7), so the
	// day-of trigger there lands a calendar day earlier than the UTC one.
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 6, 10, 2, 0, 0, 0, time.UTC)

	h := plannableHearing(startsAt, 0)
	zones := map[string]string{
		"u-utc": "UTC",
		"u-la":  "America/Los_Angeles",
	}
	triggers := PlanTriggers(h, zones, now)

	for _, tr := range triggersByKind(triggers, types.JobKindDayOf) {
		switch tr.UserID {
		case "u-utc":
			assert.Equal(t, time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC), tr.FireAt.UTC())
		case "u-la":
			// 08:00 PDT on June 9 = 15:00 UTC.
			assert.Equal(t, time.Date(2026, 6, 9, 15, 0, 0, 0, time.UTC), tr.FireAt.UTC())
		default:
			t.Fatalf("unexpected recipient %s", tr.UserID)
		}
	}
}

func TestPlanTriggers_PastInstantsDropped(t *testing.T) {
	// Hearing already underway: the reminder and day-of are in the past,
	// only next-day survives.
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	h := plannableHearing(startsAt, 30)
	triggers := PlanTriggers(h, map[string]string{"u-1": "UTC"}, now)

	assert.Empty(t, triggersByKind(triggers, types.JobKindReminder))
	assert.Empty(t, triggersByKind(triggers, types.JobKindDayOf))
	require.Len(t, triggersByKind(triggers, types.JobKindNextDay), 1)

	for _, tr := range triggers {
		assert.True(t, tr.FireAt.After(now), "planned trigger must be in the future")
	}
}

func TestPlanTriggers_MutedOrCancelled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	zones := map[string]string{"u-1": "UTC"}

	muted := plannableHearing(startsAt, 60)
	muted.Notify = false
	assert.Empty(t, PlanTriggers(muted, zones, now))

	cancelled := plannableHearing(startsAt, 60)
	cancelled.Progress = types.HearingCancelled
	assert.Empty(t, PlanTriggers(cancelled, zones, now))

	assert.Empty(t, PlanTriggers(nil, zones, now))
}

func TestPlanTriggers_UnknownZoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)

	h := plannableHearing(startsAt, 0)
	triggers := PlanTriggers(h, map[string]string{"u-1": "Not/AZone"}, now)

	dayOf := triggersByKind(triggers, types.JobKindDayOf)
	require.Len(t, dayOf, 1)
	assert.Equal(t, time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), dayOf[0].FireAt.UTC())
}

func TestPlanTriggers_MonthBoundaryNextDay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 1, 31, 14, 0, 0, 0, time.UTC)

	h := plannableHearing(startsAt, 0)
	triggers := PlanTriggers(h, map[string]string{"u-1": "UTC"}, now)

	nextDay := triggersByKind(triggers, types.JobKindNextDay)
	require.Len(t, nextDay, 1)
	assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), nextDay[0].FireAt.UTC())
}
