package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/recurrence"
)

func intp(n int) *int { return &n }

func TestRepeatRuleMapping(t *testing.T) {
	task := &Task{Repeat: "weekly"}
	rule, err := task.RepeatRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.RepeatPattern, rule.Kind)
	assert.Equal(t, recurrence.PatternWeekly, rule.Pattern)

	task = &Task{Repeat: RepeatNone}
	rule, err = task.RepeatRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.RepeatNone, rule.Kind)

	task = &Task{
		Repeat:          RepeatCustom,
		RepeatType:      "due-dates",
		RepeatFrequency: "month",
		RepeatCount:     intp(6),
		SkipWeekends:    true,
	}
	rule, err = task.RepeatRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.RepeatCustom, rule.Kind)
	assert.Equal(t, recurrence.BasisDueDates, rule.Basis)
	assert.Equal(t, recurrence.FreqMonth, rule.Frequency)
	assert.Equal(t, 6, rule.Count)
	assert.True(t, rule.SkipWeekends)
}

func TestRepeatRuleRejectsIncompleteCustom(t *testing.T) {
	task := &Task{Repeat: RepeatCustom, RepeatType: "due-dates", RepeatFrequency: "day"}
	_, err := task.RepeatRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	task = &Task{Repeat: RepeatCustom, RepeatType: "sometimes", RepeatCount: intp(3), RepeatFrequency: "day"}
	_, err = task.RepeatRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	task = &Task{Repeat: "hourly"}
	_, err = task.RepeatRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestRepeatRuleSpecificDates(t *testing.T) {
	task := &Task{
		AnchorDate:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Repeat:      RepeatCustom,
		RepeatType:  "specific-dates",
		RepeatDates: "2024-07-01,2024-06-15",
	}
	rule, err := task.RepeatRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.BasisSpecificDates, rule.Basis)
	assert.Len(t, rule.SpecificDates, 2)

	task.RepeatDates = "next tuesday"
	_, err = task.RepeatRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestReminderRuleMapping(t *testing.T) {
	for reminder, want := range map[string]recurrence.ReminderKind{
		ReminderOnTime:  recurrence.RemindOnTime,
		ReminderFiveMin: recurrence.RemindOffset,
		ReminderOneDay:  recurrence.RemindDaysEarly,
		ReminderOneWeek: recurrence.RemindWeeksEarly,
	} {
		task := &Task{Reminder: reminder}
		rule, err := task.ReminderRule()
		require.NoError(t, err)
		assert.Equal(t, want, rule.Kind, reminder)
	}

	task := &Task{Reminder: ReminderFiveMin}
	rule, err := task.ReminderRule()
	require.NoError(t, err)
	assert.Equal(t, 5, rule.MinutesBefore)
}

func TestReminderRuleCustomVariants(t *testing.T) {
	// With an explicit clock time the custom variant carries it.
	task := &Task{
		Reminder:           ReminderCustom,
		ReminderTimeUnit:   "days",
		ReminderCustomDays: intp(3),
		ReminderCustomTime: "08:00",
	}
	rule, err := task.ReminderRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.RemindCustom, rule.Kind)
	assert.Equal(t, 3, rule.Amount)
	assert.Equal(t, "08:00", rule.TimeOfDay)

	// Without one it degrades to a plain days-early lead.
	task.ReminderCustomTime = ""
	rule, err = task.ReminderRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.RemindDaysEarly, rule.Kind)
	assert.Equal(t, 3, rule.Days)

	task = &Task{
		Reminder:            ReminderCustom,
		ReminderTimeUnit:    "weeks",
		ReminderCustomWeeks: intp(2),
	}
	rule, err = task.ReminderRule()
	require.NoError(t, err)
	assert.Equal(t, recurrence.RemindWeeksEarly, rule.Kind)
	assert.Equal(t, 2, rule.Weeks)
}

func TestReminderRuleRejectsIncompleteCustom(t *testing.T) {
	task := &Task{Reminder: ReminderCustom}
	_, err := task.ReminderRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	task = &Task{Reminder: ReminderCustom, ReminderTimeUnit: "days"}
	_, err = task.ReminderRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	task = &Task{Reminder: ReminderCustom, ReminderTimeUnit: "weeks"}
	_, err = task.ReminderRule()
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestDueAtCombinesAnchorDateAndTime(t *testing.T) {
	task := &Task{
		AnchorDate: time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
		AnchorTime: "09:00",
	}
	due, err := task.DueAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC), due)
}
