package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"taskplanner/internal/model"
)

// OccurrenceRepository stores the derived occurrence rows.
type OccurrenceRepository struct {
	db *gorm.DB
}

func NewOccurrenceRepository(db *gorm.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

func (r *OccurrenceRepository) ListForTask(ctx context.Context, taskID uint) ([]model.Occurrence, error) {
	var occs []model.Occurrence
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("occurrence_index ASC").
		Find(&occs).Error; err != nil {
		return nil, err
	}
	return occs, nil
}

// Reconcile replaces the stored occurrence set of a task with the desired
// one inside a single transaction. Completed rows are never deleted or
// mutated; incomplete rows matching the desired instants are left untouched
// so an unchanged reconcile writes nothing. The task's revision is
// re-checked inside the transaction; a mismatch means a concurrent writer
// won and the whole reconcile rolls back with ErrReconciliationConflict.
// Returns the full ordered occurrence list.
func (r *OccurrenceRepository) Reconcile(ctx context.Context, task *model.Task, desired []model.Occurrence) ([]model.Occurrence, error) {
	var result []model.Occurrence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Task
		if err := tx.Select("id", "revision").First(&current, task.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("task %d vanished: %w", task.ID, ErrReconciliationConflict)
			}
			return fmt.Errorf("check task revision: %w", err)
		}
		if current.Revision != task.Revision {
			return fmt.Errorf("task %d revision %d != %d: %w",
				task.ID, current.Revision, task.Revision, ErrReconciliationConflict)
		}

		var existing []model.Occurrence
		if err := tx.Where("task_id = ?", task.ID).
			Order("occurrence_index ASC").
			Find(&existing).Error; err != nil {
			return fmt.Errorf("load occurrences: %w", err)
		}
		byIndex := make(map[int]model.Occurrence, len(existing))
		for _, occ := range existing {
			byIndex[occ.OccurrenceIndex] = occ
		}

		wanted := make(map[int]bool, len(desired))
		for _, want := range desired {
			wanted[want.OccurrenceIndex] = true
			have, ok := byIndex[want.OccurrenceIndex]
			switch {
			case ok && have.Completed:
				// Historical integrity: a completed occurrence is retained
				// as generated, whatever the new rules say.
				result = append(result, have)
			case ok && have.DueAt.Equal(want.DueAt) && have.ReminderFireAt.Equal(want.ReminderFireAt):
				result = append(result, have)
			case ok:
				have.DueAt = want.DueAt
				have.ReminderFireAt = want.ReminderFireAt
				have.NotifiedAt = nil
				if err := tx.Save(&have).Error; err != nil {
					return fmt.Errorf("update occurrence %d: %w", have.OccurrenceIndex, err)
				}
				result = append(result, have)
			default:
				want.TaskID = task.ID
				if err := tx.Create(&want).Error; err != nil {
					return fmt.Errorf("insert occurrence %d: %w", want.OccurrenceIndex, err)
				}
				result = append(result, want)
			}
		}

		for _, occ := range existing {
			if occ.Completed || wanted[occ.OccurrenceIndex] {
				if occ.Completed && !wanted[occ.OccurrenceIndex] {
					result = append(result, occ)
				}
				continue
			}
			if err := tx.Delete(&model.Occurrence{}, occ.ID).Error; err != nil {
				return fmt.Errorf("delete occurrence %d: %w", occ.OccurrenceIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByIndex(result)
	return result, nil
}

func (r *OccurrenceRepository) Find(ctx context.Context, taskID uint, index int) (*model.Occurrence, error) {
	var occ model.Occurrence
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND occurrence_index = ?", taskID, index).
		First(&occ).Error; err != nil {
		return nil, err
	}
	return &occ, nil
}

// SetCompleted flips one occurrence's completion state.
func (r *OccurrenceRepository) SetCompleted(ctx context.Context, taskID uint, index int, completed bool, at time.Time) (*model.Occurrence, error) {
	var occ model.Occurrence
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND occurrence_index = ?", taskID, index).
		First(&occ).Error; err != nil {
		return nil, err
	}
	occ.Completed = completed
	if completed {
		occ.CompletedAt = &at
	} else {
		occ.CompletedAt = nil
	}
	if err := r.db.WithContext(ctx).Save(&occ).Error; err != nil {
		return nil, fmt.Errorf("set occurrence completion: %w", err)
	}
	return &occ, nil
}

// DatedOccurrence is an occurrence joined with the task fields a day view
// needs.
type DatedOccurrence struct {
	TaskPublicID    string    `json:"taskId"`
	TaskName        string    `json:"taskName"`
	TaskPriority    string    `json:"priority"`
	OccurrenceIndex int       `json:"occurrenceIndex"`
	DueAt           time.Time `json:"dueAt"`
	ReminderFireAt  time.Time `json:"reminderFireAt"`
	Completed       bool      `json:"completed"`
}

// ListByDate returns a user's occurrences due in [dayStart, dayStart+24h),
// ordered ascending by due instant.
func (r *OccurrenceRepository) ListByDate(ctx context.Context, userID uint, dayStart time.Time) ([]DatedOccurrence, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	var rows []DatedOccurrence
	if err := r.db.WithContext(ctx).Model(&model.Occurrence{}).
		Select("tasks.public_id AS task_public_id, tasks.name AS task_name, tasks.priority AS task_priority, "+
			"occurrences.occurrence_index, occurrences.due_at, occurrences.reminder_fire_at, occurrences.completed").
		Joins("JOIN tasks ON tasks.id = occurrences.task_id").
		Where("tasks.user_id = ? AND occurrences.due_at >= ? AND occurrences.due_at < ?", userID, dayStart, dayEnd).
		Order("occurrences.due_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DueReminder pairs a fireable occurrence with its owning task.
type DueReminder struct {
	Occurrence model.Occurrence
	Task       model.Task
}

// ListDueReminders returns occurrences whose fire instant has passed and
// that were neither completed nor already notified.
func (r *OccurrenceRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]DueReminder, error) {
	var occs []model.Occurrence
	q := r.db.WithContext(ctx).
		Where("reminder_fire_at <= ? AND notified_at IS NULL AND completed = ?", now, false).
		Order("reminder_fire_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&occs).Error; err != nil {
		return nil, err
	}

	var due []DueReminder
	for _, occ := range occs {
		var task model.Task
		if err := r.db.WithContext(ctx).First(&task, occ.TaskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, fmt.Errorf("load task %d: %w", occ.TaskID, err)
		}
		due = append(due, DueReminder{Occurrence: occ, Task: task})
	}
	return due, nil
}

// MarkNotified stamps the occurrence as having fired its reminder.
func (r *OccurrenceRepository) MarkNotified(ctx context.Context, occurrenceID uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Occurrence{}).
		Where("id = ?", occurrenceID).
		Update("notified_at", at).Error; err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

func sortByIndex(occs []model.Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		return occs[i].OccurrenceIndex < occs[j].OccurrenceIndex
	})
}
