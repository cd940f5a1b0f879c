package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"taskplanner/internal/model"
	"taskplanner/internal/recurrence"
	"taskplanner/internal/repository"
)

// DefaultOccurrenceCeiling bounds how many occurrences a single materialize
// call may generate, whatever the rule or horizon asks for.
const DefaultOccurrenceCeiling = 1000

// Materializer reconciles a task definition's rules against its stored
// occurrence rows. Expansion and reminder resolution are pure; the single
// transactional write lives in the occurrence repository.
type Materializer struct {
	occRepo *repository.OccurrenceRepository
	ceiling int
	log     zerolog.Logger
}

func NewMaterializer(occRepo *repository.OccurrenceRepository, log zerolog.Logger) *Materializer {
	return &Materializer{occRepo: occRepo, ceiling: DefaultOccurrenceCeiling, log: log}
}

// Materialize computes and persists the occurrence set implied by the task's
// current rules, idempotently: an unchanged definition and horizon produce
// no writes. Completed occurrences are never touched; future incomplete ones
// are regenerated. Returns the full ordered list in range.
func (m *Materializer) Materialize(ctx context.Context, task *model.Task, horizon recurrence.Horizon) ([]model.Occurrence, error) {
	repeatRule, err := task.RepeatRule()
	if err != nil {
		return nil, err
	}
	reminderRule, err := task.ReminderRule()
	if err != nil {
		return nil, err
	}
	if _, err := task.DueAt(); err != nil {
		return nil, fmt.Errorf("%w: %v", recurrence.ErrInvalidRule, err)
	}

	if count := occurrenceBound(repeatRule); count > m.ceiling {
		return nil, fmt.Errorf("%w: rule asks for %d occurrences, ceiling is %d",
			recurrence.ErrHorizonTooLarge, count, m.ceiling)
	}
	if horizon.MaxOccurrences > m.ceiling {
		return nil, fmt.Errorf("%w: horizon asks for %d occurrences, ceiling is %d",
			recurrence.ErrHorizonTooLarge, horizon.MaxOccurrences, m.ceiling)
	}
	if horizon.MaxOccurrences <= 0 {
		horizon.MaxOccurrences = m.ceiling
	}

	existing, err := m.occRepo.ListForTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("load occurrences: %w", err)
	}

	expander, err := recurrence.NewExpander(repeatRule, task.AnchorDate, horizon)
	if err != nil {
		return nil, err
	}
	expander.WithCompletions(completionsByIndex(existing))

	var desired []model.Occurrence
	for i, date := range expander.Collect() {
		due, err := recurrence.AtTimeOfDay(date, task.AnchorTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", recurrence.ErrInvalidRule, err)
		}
		fireAt, err := recurrence.ResolveReminder(due, reminderRule)
		if err != nil {
			return nil, err
		}
		desired = append(desired, model.Occurrence{
			TaskID:          task.ID,
			OccurrenceIndex: i,
			DueAt:           due,
			ReminderFireAt:  fireAt,
		})
	}
	if expander.FellBack() {
		m.log.Warn().
			Str("task", task.PublicID).
			Msg("completion-dates stepping fell back to due-date stepping: missing completion times")
	}

	occs, err := m.occRepo.Reconcile(ctx, task, desired)
	if err != nil {
		return nil, err
	}
	return occs, nil
}

// occurrenceBound mirrors the rule's own occurrence limit for the ceiling
// check; open-ended rules are bounded by the horizon instead.
func occurrenceBound(rule recurrence.RepeatRule) int {
	if rule.Kind == recurrence.RepeatFixed || (rule.Kind == recurrence.RepeatCustom && rule.Basis != recurrence.BasisSpecificDates) {
		return rule.Count
	}
	return 0
}

// completionsByIndex maps stored completion instants to occurrence indexes
// for completion-dates stepping.
func completionsByIndex(occs []model.Occurrence) []time.Time {
	max := -1
	for _, occ := range occs {
		if occ.Completed && occ.OccurrenceIndex > max {
			max = occ.OccurrenceIndex
		}
	}
	if max < 0 {
		return nil
	}
	times := make([]time.Time, max+1)
	for _, occ := range occs {
		if occ.Completed && occ.CompletedAt != nil {
			times[occ.OccurrenceIndex] = *occ.CompletedAt
		}
	}
	return times
}
