package recurrence

import (
	"fmt"
	"time"
)

// ResolveReminder computes the absolute fire instant for one occurrence due
// at the given instant. The result never falls after the due instant (it is
// equal for on-time reminders). A fire time already in the past is still
// returned; whether a past reminder is suppressed or fired immediately is the
// caller's call.
func ResolveReminder(due time.Time, rule ReminderRule) (time.Time, error) {
	if err := rule.Validate(); err != nil {
		return time.Time{}, err
	}

	switch rule.Kind {
	case RemindOnTime:
		return due, nil
	case RemindOffset:
		return due.Add(-time.Duration(rule.MinutesBefore) * time.Minute), nil
	case RemindDaysEarly:
		return due.AddDate(0, 0, -rule.Days), nil
	case RemindWeeksEarly:
		return due.AddDate(0, 0, -7*rule.Weeks), nil
	case RemindCustom:
		days := rule.Amount
		if rule.Unit == UnitWeeks {
			days *= 7
		}
		fire, err := AtTimeOfDay(due.AddDate(0, 0, -days), rule.TimeOfDay)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		// A custom clock time can land past the due instant (amount 0, late
		// time of day); clamp to keep fire <= due.
		if fire.After(due) {
			fire = due
		}
		return fire, nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown reminder kind %d", ErrInvalidRule, rule.Kind)
}
