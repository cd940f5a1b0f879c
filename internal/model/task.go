package model

import (
	"fmt"
	"strings"
	"time"

	"taskplanner/internal/recurrence"
)

// Priority levels accepted on a task.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
	PriorityNone   = "no-priority"
)

// Reminder choices as the client sends them.
const (
	ReminderOnTime  = "on-time"
	ReminderFiveMin = "5-mins"
	ReminderOneDay  = "1-day"
	ReminderOneWeek = "1-week"
	ReminderCustom  = "custom"
)

// Repeat choices that are not named patterns.
const (
	RepeatNone   = "none"
	RepeatCustom = "custom"
)

// Task is the stored definition of a (possibly repeating) scheduled task.
// The repeat/reminder configuration is kept in the flat columns the client
// submits; RepeatRule and ReminderRule fold them into the tagged variants
// the engine consumes.
type Task struct {
	ID       uint   `gorm:"primaryKey"`
	PublicID string `gorm:"uniqueIndex;size:36"`
	UserID   uint   `gorm:"index"`

	Name     string
	Priority string `gorm:"default:no-priority"`

	AnchorDate time.Time // first scheduled occurrence, date part
	AnchorTime string    // HH:MM, local time of day

	Reminder            string `gorm:"default:on-time"`
	ReminderTimeUnit    string
	ReminderCustomDays  *int
	ReminderCustomWeeks *int
	ReminderCustomTime  string

	Repeat          string `gorm:"default:none"`
	RepeatType      string
	RepeatFrequency string
	RepeatCount     *int
	RepeatDates     string // comma-joined YYYY-MM-DD, specific-dates basis only
	SkipWeekends    bool   `gorm:"default:false"`

	// Completed applies to the base definition for non-repeating tasks;
	// repeating tasks track completion per occurrence.
	Completed bool `gorm:"default:false"`

	// Revision guards concurrent reconciliations of the same definition.
	Revision uint

	CreatedAt   time.Time
	UpdatedAt   time.Time
	Occurrences []Occurrence `gorm:"foreignKey:TaskID"`
}

// IsRepeating reports whether the task expands to more than its anchor.
func (t *Task) IsRepeating() bool {
	return t.Repeat != "" && t.Repeat != RepeatNone
}

// DueAt combines the anchor date and time of day into the first due instant.
func (t *Task) DueAt() (time.Time, error) {
	return recurrence.AtTimeOfDay(t.AnchorDate, t.AnchorTime)
}

// RepeatRule folds the flat repeat columns into the tagged variant,
// rejecting combinations where the chosen tag is missing its sub-fields.
func (t *Task) RepeatRule() (recurrence.RepeatRule, error) {
	switch t.Repeat {
	case "", RepeatNone:
		return recurrence.NoRepeat(), nil
	case "daily", "weekly", "monthly", "yearly", "weekdays", "weekends":
		return recurrence.PatternRule(recurrence.Pattern(t.Repeat)), nil
	case RepeatCustom:
	default:
		return recurrence.RepeatRule{}, fmt.Errorf("%w: unknown repeat %q", recurrence.ErrInvalidRule, t.Repeat)
	}

	basis := recurrence.Basis(t.RepeatType)
	if basis == recurrence.BasisSpecificDates {
		dates, err := t.specificDates()
		if err != nil {
			return recurrence.RepeatRule{}, err
		}
		return recurrence.CustomRule(basis, "", 0, t.SkipWeekends, dates), nil
	}

	if t.RepeatCount == nil {
		return recurrence.RepeatRule{}, fmt.Errorf("%w: custom repeat needs a count", recurrence.ErrInvalidRule)
	}
	rule := recurrence.CustomRule(basis, recurrence.Frequency(t.RepeatFrequency), *t.RepeatCount, t.SkipWeekends, nil)
	if err := rule.Validate(); err != nil {
		return recurrence.RepeatRule{}, err
	}
	return rule, nil
}

// ReminderRule folds the flat reminder columns into the tagged variant. A
// custom reminder without an explicit clock time keeps the due time of day.
func (t *Task) ReminderRule() (recurrence.ReminderRule, error) {
	switch t.Reminder {
	case "", ReminderOnTime:
		return recurrence.OnTime(), nil
	case ReminderFiveMin:
		return recurrence.MinutesBefore(5), nil
	case ReminderOneDay:
		return recurrence.DaysEarly(1), nil
	case ReminderOneWeek:
		return recurrence.WeeksEarly(1), nil
	case ReminderCustom:
	default:
		return recurrence.ReminderRule{}, fmt.Errorf("%w: unknown reminder %q", recurrence.ErrInvalidRule, t.Reminder)
	}

	switch recurrence.ReminderUnit(t.ReminderTimeUnit) {
	case recurrence.UnitDays:
		if t.ReminderCustomDays == nil {
			return recurrence.ReminderRule{}, fmt.Errorf("%w: custom reminder needs a day amount", recurrence.ErrInvalidRule)
		}
		if t.ReminderCustomTime != "" {
			return recurrence.CustomReminder(recurrence.UnitDays, *t.ReminderCustomDays, t.ReminderCustomTime), nil
		}
		return recurrence.DaysEarly(*t.ReminderCustomDays), nil
	case recurrence.UnitWeeks:
		if t.ReminderCustomWeeks == nil {
			return recurrence.ReminderRule{}, fmt.Errorf("%w: custom reminder needs a week amount", recurrence.ErrInvalidRule)
		}
		if t.ReminderCustomTime != "" {
			return recurrence.CustomReminder(recurrence.UnitWeeks, *t.ReminderCustomWeeks, t.ReminderCustomTime), nil
		}
		return recurrence.WeeksEarly(*t.ReminderCustomWeeks), nil
	}
	return recurrence.ReminderRule{}, fmt.Errorf("%w: custom reminder needs a time unit", recurrence.ErrInvalidRule)
}

func (t *Task) specificDates() ([]time.Time, error) {
	raw := strings.TrimSpace(t.RepeatDates)
	if raw == "" {
		return nil, nil
	}
	var dates []time.Time
	for _, part := range strings.Split(raw, ",") {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(part), t.AnchorDate.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: bad specific date %q", recurrence.ErrInvalidRule, part)
		}
		dates = append(dates, d)
	}
	return dates, nil
}
