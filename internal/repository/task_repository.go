package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskplanner/internal/model"
)

// ErrReconciliationConflict means concurrent writers raced on the same task
// definition. Recoverable: the caller reloads and retries.
var ErrReconciliationConflict = errors.New("reconciliation conflict")

// TaskRepository handles CRUD for task definitions.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Revision == 0 {
		task.Revision = 1
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update persists the task guarded by its revision: the write succeeds only
// when no concurrent writer bumped the revision since the task was loaded.
// On success the in-memory revision is advanced to match the stored row.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	loaded := task.Revision
	task.Revision = loaded + 1
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND revision = ?", task.ID, loaded).
		Select("*").Omit("id", "created_at", "Occurrences").Updates(task)
	if res.Error != nil {
		task.Revision = loaded
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		task.Revision = loaded
		return fmt.Errorf("update task %d: %w", task.ID, ErrReconciliationConflict)
	}
	return nil
}

func (r *TaskRepository) FindByPublicID(ctx context.Context, userID uint, publicID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("anchor_date ASC, anchor_time ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListRepeating returns every repeating task across all users, for the
// rolling-horizon refresh.
func (r *TaskRepository) ListRepeating(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("repeat <> ?", model.RepeatNone).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Delete removes a task and all its occurrence rows, completed or not.
func (r *TaskRepository) Delete(ctx context.Context, userID uint, publicID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.Where("user_id = ? AND public_id = ?", userID, publicID).First(&task).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&model.Occurrence{}).Error; err != nil {
			return fmt.Errorf("delete occurrences: %w", err)
		}
		if err := tx.Delete(&model.Task{}, task.ID).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}
