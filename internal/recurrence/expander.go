package recurrence

import (
	"fmt"
	"time"
)

// Horizon bounds how far an expansion may run. At least one bound must be
// set for open-ended rules.
type Horizon struct {
	MaxOccurrences int
	MaxDate        time.Time
}

// Bounded reports whether the horizon limits the expansion at all.
func (h Horizon) Bounded() bool {
	return h.MaxOccurrences > 0 || !h.MaxDate.IsZero()
}

// Expander enumerates the due dates implied by one repeat rule: a lazy,
// finite, restartable sequence, strictly increasing, starting at the anchor.
// It holds no shared state and performs no I/O; one Expander per goroutine.
type Expander struct {
	rule        RepeatRule
	anchor      time.Time
	horizon     Horizon
	dates       []time.Time // specific-dates traversal set
	completions []time.Time // actual completion instants by occurrence index

	cursor   int
	emitted  int
	last     time.Time
	done     bool
	fellBack bool
}

// NewExpander validates the rule and prepares a sequence over it. Open-ended
// rules (named patterns) require a bounded horizon, otherwise the sequence
// could not terminate.
func NewExpander(rule RepeatRule, anchor time.Time, horizon Horizon) (*Expander, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rule.occurrenceBound() == 0 && !horizon.Bounded() {
		return nil, fmt.Errorf("%w: open-ended repeat requires a bounded horizon", ErrInvalidRule)
	}
	return &Expander{
		rule:    rule,
		anchor:  anchor,
		horizon: horizon,
		dates:   rule.sortedDates(),
	}, nil
}

// WithCompletions supplies actual completion instants, indexed by occurrence,
// for completion-dates stepping. A zero time means "not completed yet".
func (e *Expander) WithCompletions(times []time.Time) *Expander {
	e.completions = times
	return e
}

// Reset rewinds the sequence to its first element.
func (e *Expander) Reset() {
	e.cursor = 0
	e.emitted = 0
	e.last = time.Time{}
	e.done = false
	e.fellBack = false
}

// FellBack reports whether completion-dates stepping had to fall back to
// due-date stepping because a completion instant was missing. This is a
// reported limitation, not a silent behavior change.
func (e *Expander) FellBack() bool {
	return e.fellBack
}

// Next yields the following due date, or false when the sequence is finished.
func (e *Expander) Next() (time.Time, bool) {
	for !e.done {
		candidate, ok := e.candidate()
		if !ok {
			e.done = true
			break
		}

		if e.rule.SkipWeekends && IsWeekend(candidate) {
			candidate = NextBusinessDay(candidate)
		}
		if e.emitted > 0 && !candidate.After(e.last) {
			if !e.rule.SkipWeekends {
				// Duplicate candidate from a filtered pattern; drop it.
				continue
			}
			// Two candidates corrected onto the same business day: merge by
			// skipping the later one forward again.
			candidate = NextBusinessDay(e.last.AddDate(0, 0, 1))
		}

		if !e.horizon.MaxDate.IsZero() && candidate.After(e.horizon.MaxDate) {
			e.done = true
			break
		}

		e.emitted++
		e.last = candidate
		if bound := e.rule.occurrenceBound(); bound > 0 && e.emitted >= bound {
			e.done = true
		}
		if e.horizon.MaxOccurrences > 0 && e.emitted >= e.horizon.MaxOccurrences {
			e.done = true
		}
		return candidate, true
	}
	return time.Time{}, false
}

// Collect restarts the sequence and drains it.
func (e *Expander) Collect() []time.Time {
	e.Reset()
	var out []time.Time
	for {
		d, ok := e.Next()
		if !ok {
			return out
		}
		out = append(out, d)
	}
}

// candidate produces the next raw due date before weekend correction.
func (e *Expander) candidate() (time.Time, bool) {
	switch e.rule.Kind {
	case RepeatNone:
		if e.emitted > 0 {
			return time.Time{}, false
		}
		return e.anchor, true

	case RepeatPattern:
		return e.patternCandidate()

	case RepeatFixed:
		return e.steppedCandidate(BasisDueDates)

	case RepeatCustom:
		if e.rule.Basis == BasisSpecificDates {
			if e.emitted >= len(e.dates) {
				return time.Time{}, false
			}
			return e.dates[e.emitted], true
		}
		return e.steppedCandidate(e.rule.Basis)
	}
	return time.Time{}, false
}

func (e *Expander) patternCandidate() (time.Time, bool) {
	switch e.rule.Pattern {
	case PatternDaily:
		d := AddUnits(e.anchor, FreqDay, e.cursor)
		e.cursor++
		return d, true
	case PatternWeekly:
		d := AddUnits(e.anchor, FreqWeek, e.cursor)
		e.cursor++
		return d, true
	case PatternMonthly:
		d := AddUnits(e.anchor, FreqMonth, e.cursor)
		e.cursor++
		return d, true
	case PatternYearly:
		d := AddUnits(e.anchor, FreqYear, e.cursor)
		e.cursor++
		return d, true
	case PatternWeekdays, PatternWeekends:
		// Advance one calendar day at a time, emitting only matching days.
		wantWeekend := e.rule.Pattern == PatternWeekends
		for {
			d := e.anchor.AddDate(0, 0, e.cursor)
			e.cursor++
			if IsWeekend(d) == wantWeekend {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// steppedCandidate computes occurrence i for fixed and custom stepping. With
// the due-dates basis every occurrence is a pure function of the anchor and
// its index, so month arithmetic clamps against the anchor day instead of
// drifting (Jan 31, Feb 29, Mar 31). With the completion-dates basis the
// previous occurrence's completion instant becomes the new anchor when known.
func (e *Expander) steppedCandidate(basis Basis) (time.Time, bool) {
	i := e.emitted
	if i >= e.rule.Count {
		return time.Time{}, false
	}
	if i == 0 {
		return e.anchor, true
	}
	if basis == BasisCompletionDates {
		if i-1 < len(e.completions) && !e.completions[i-1].IsZero() {
			// An occurrence completed ahead of its due date would step to a
			// candidate at or before the previous one; stepping from the later
			// of the two keeps the sequence strictly increasing.
			base := e.completions[i-1]
			if base.Before(e.last) {
				base = e.last
			}
			return AddUnits(base, e.rule.Frequency, 1), true
		}
		e.fellBack = true
		return AddUnits(e.last, e.rule.Frequency, 1), true
	}
	return AddUnits(e.anchor, e.rule.Frequency, i), true
}
