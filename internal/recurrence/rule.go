package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidRule marks a malformed or incomplete repeat/reminder
// configuration. Recoverable: the caller fixes the input and retries.
var ErrInvalidRule = errors.New("invalid rule")

// ErrHorizonTooLarge marks a request that would generate an excessive number
// of occurrences. Recoverable: the caller lowers the horizon or the count.
var ErrHorizonTooLarge = errors.New("horizon too large")

// Frequency is a calendar stepping unit.
type Frequency string

const (
	FreqDay   Frequency = "day"
	FreqWeek  Frequency = "week"
	FreqMonth Frequency = "month"
	FreqYear  Frequency = "year"
)

func validFrequency(f Frequency) bool {
	switch f {
	case FreqDay, FreqWeek, FreqMonth, FreqYear:
		return true
	}
	return false
}

// Pattern names a built-in repeat cadence.
type Pattern string

const (
	PatternDaily    Pattern = "daily"
	PatternWeekly   Pattern = "weekly"
	PatternMonthly  Pattern = "monthly"
	PatternYearly   Pattern = "yearly"
	PatternWeekdays Pattern = "weekdays"
	PatternWeekends Pattern = "weekends"
)

func validPattern(p Pattern) bool {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternYearly, PatternWeekdays, PatternWeekends:
		return true
	}
	return false
}

// Basis selects what a custom repeat steps from.
type Basis string

const (
	BasisDueDates        Basis = "due-dates"
	BasisCompletionDates Basis = "completion-dates"
	BasisSpecificDates   Basis = "specific-dates"
)

// RepeatKind tags the repeat rule variant.
type RepeatKind int

const (
	RepeatNone RepeatKind = iota
	RepeatPattern
	RepeatFixed
	RepeatCustom
)

// RepeatRule is a closed tagged variant: exactly the fields of the chosen
// kind are populated. Build rules through the constructors; Validate rejects
// anything decoded from the outside with orphan or missing fields.
type RepeatRule struct {
	Kind          RepeatKind
	Pattern       Pattern
	Frequency     Frequency
	Count         int
	Basis         Basis
	SkipWeekends  bool
	SpecificDates []time.Time
}

// NoRepeat is a single-occurrence rule.
func NoRepeat() RepeatRule {
	return RepeatRule{Kind: RepeatNone}
}

// PatternRule repeats on a named cadence until the caller's horizon.
func PatternRule(p Pattern) RepeatRule {
	return RepeatRule{Kind: RepeatPattern, Pattern: p}
}

// FixedRule repeats count times, each one frequency unit after the previous.
func FixedRule(freq Frequency, count int) RepeatRule {
	return RepeatRule{Kind: RepeatFixed, Frequency: freq, Count: count, Basis: BasisDueDates}
}

// CustomRule repeats with an explicit stepping basis. For the specific-dates
// basis the dates slice carries the full ordered occurrence set and
// frequency/count are ignored.
func CustomRule(basis Basis, freq Frequency, count int, skipWeekends bool, dates []time.Time) RepeatRule {
	r := RepeatRule{Kind: RepeatCustom, Basis: basis, SkipWeekends: skipWeekends}
	if basis == BasisSpecificDates {
		r.SpecificDates = dates
		return r
	}
	r.Frequency = freq
	r.Count = count
	return r
}

// Validate checks tag consistency: the chosen variant has its required
// sub-fields and carries nothing belonging to another variant.
func (r RepeatRule) Validate() error {
	switch r.Kind {
	case RepeatNone:
		if r.Pattern != "" || r.Frequency != "" || r.Count != 0 || len(r.SpecificDates) != 0 {
			return fmt.Errorf("%w: non-repeating rule carries repeat fields", ErrInvalidRule)
		}
	case RepeatPattern:
		if !validPattern(r.Pattern) {
			return fmt.Errorf("%w: unknown repeat pattern %q", ErrInvalidRule, r.Pattern)
		}
	case RepeatFixed:
		if !validFrequency(r.Frequency) {
			return fmt.Errorf("%w: fixed repeat needs a frequency", ErrInvalidRule)
		}
		if r.Count < 1 {
			return fmt.Errorf("%w: fixed repeat needs a positive count", ErrInvalidRule)
		}
	case RepeatCustom:
		switch r.Basis {
		case BasisDueDates, BasisCompletionDates:
			if !validFrequency(r.Frequency) {
				return fmt.Errorf("%w: custom repeat needs a frequency", ErrInvalidRule)
			}
			if r.Count < 1 {
				return fmt.Errorf("%w: custom repeat needs a positive count", ErrInvalidRule)
			}
		case BasisSpecificDates:
			// An empty date set is degenerate but legal: it expands to nothing.
		default:
			return fmt.Errorf("%w: unknown repeat basis %q", ErrInvalidRule, r.Basis)
		}
	default:
		return fmt.Errorf("%w: unknown repeat kind %d", ErrInvalidRule, r.Kind)
	}
	return nil
}

// sortedDates returns the specific-dates set sorted ascending with
// same-calendar-day duplicates removed.
func (r RepeatRule) sortedDates() []time.Time {
	dates := make([]time.Time, len(r.SpecificDates))
	copy(dates, r.SpecificDates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:0]
	for _, d := range dates {
		if len(out) > 0 && SameCalendarDay(out[len(out)-1], d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// occurrenceBound returns the rule's own occurrence limit, or 0 when the
// rule is open-ended and only the caller's horizon bounds it.
func (r RepeatRule) occurrenceBound() int {
	switch r.Kind {
	case RepeatNone:
		return 1
	case RepeatFixed:
		return r.Count
	case RepeatCustom:
		if r.Basis == BasisSpecificDates {
			return len(r.sortedDates())
		}
		return r.Count
	}
	return 0
}

// ReminderUnit is the unit of a custom reminder lead.
type ReminderUnit string

const (
	UnitDays  ReminderUnit = "days"
	UnitWeeks ReminderUnit = "weeks"
)

// ReminderKind tags the reminder rule variant.
type ReminderKind int

const (
	RemindOnTime ReminderKind = iota
	RemindOffset
	RemindDaysEarly
	RemindWeeksEarly
	RemindCustom
)

// ReminderRule is the reminder counterpart of RepeatRule.
type ReminderRule struct {
	Kind          ReminderKind
	MinutesBefore int
	Days          int
	Weeks         int
	Unit          ReminderUnit
	Amount        int
	TimeOfDay     string // HH:MM
}

// OnTime fires at the due instant itself.
func OnTime() ReminderRule {
	return ReminderRule{Kind: RemindOnTime}
}

// MinutesBefore fires the given number of minutes ahead of the due instant.
func MinutesBefore(n int) ReminderRule {
	return ReminderRule{Kind: RemindOffset, MinutesBefore: n}
}

// DaysEarly fires n days ahead at the due time of day.
func DaysEarly(n int) ReminderRule {
	return ReminderRule{Kind: RemindDaysEarly, Days: n}
}

// WeeksEarly fires n weeks ahead at the due time of day.
func WeeksEarly(n int) ReminderRule {
	return ReminderRule{Kind: RemindWeeksEarly, Weeks: n}
}

// CustomReminder fires amount units ahead at an explicit clock time.
func CustomReminder(unit ReminderUnit, amount int, timeOfDay string) ReminderRule {
	return ReminderRule{Kind: RemindCustom, Unit: unit, Amount: amount, TimeOfDay: timeOfDay}
}

// Validate checks tag consistency and field ranges.
func (r ReminderRule) Validate() error {
	switch r.Kind {
	case RemindOnTime:
	case RemindOffset:
		if r.MinutesBefore < 0 {
			return fmt.Errorf("%w: reminder offset must not be negative", ErrInvalidRule)
		}
	case RemindDaysEarly:
		if r.Days < 0 || r.Days > 60 {
			return fmt.Errorf("%w: reminder days must be within 0..60", ErrInvalidRule)
		}
	case RemindWeeksEarly:
		if r.Weeks < 0 || r.Weeks > 12 {
			return fmt.Errorf("%w: reminder weeks must be within 0..12", ErrInvalidRule)
		}
	case RemindCustom:
		if r.Unit != UnitDays && r.Unit != UnitWeeks {
			return fmt.Errorf("%w: unknown reminder unit %q", ErrInvalidRule, r.Unit)
		}
		if r.Amount < 0 {
			return fmt.Errorf("%w: reminder amount must not be negative", ErrInvalidRule)
		}
		if _, err := time.Parse("15:04", r.TimeOfDay); err != nil {
			return fmt.Errorf("%w: reminder time %q is not HH:MM", ErrInvalidRule, r.TimeOfDay)
		}
	default:
		return fmt.Errorf("%w: unknown reminder kind %d", ErrInvalidRule, r.Kind)
	}
	return nil
}
