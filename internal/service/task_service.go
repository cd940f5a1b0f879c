package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"taskplanner/internal/model"
	"taskplanner/internal/recurrence"
	"taskplanner/internal/repository"
)

// TaskService wraps task CRUD and keeps the derived occurrences in step with
// every definition change.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	occRepo      *repository.OccurrenceRepository
	materializer *Materializer
	horizonDays  int
	log          zerolog.Logger
}

func NewTaskService(taskRepo *repository.TaskRepository, occRepo *repository.OccurrenceRepository, materializer *Materializer, horizonDays int, log zerolog.Logger) *TaskService {
	if horizonDays <= 0 {
		horizonDays = 365
	}
	return &TaskService{
		taskRepo:     taskRepo,
		occRepo:      occRepo,
		materializer: materializer,
		horizonDays:  horizonDays,
		log:          log,
	}
}

// Horizon builds the rolling expansion window: one configured span ahead of
// the later of now and the task's anchor, so far-future anchors still expand.
func (s *TaskService) Horizon(task *model.Task, now time.Time) recurrence.Horizon {
	from := now
	if task.AnchorDate.After(from) {
		from = task.AnchorDate
	}
	return recurrence.Horizon{MaxDate: from.AddDate(0, 0, s.horizonDays)}
}

// Create validates the definition's rules, stores it and materializes its
// occurrences. The stored task is rolled back if materialization is
// impossible, so a rejected rule never leaves a bare definition behind.
func (s *TaskService) Create(ctx context.Context, user *model.User, task *model.Task) ([]model.Occurrence, error) {
	if err := validateRules(task); err != nil {
		return nil, err
	}

	task.UserID = user.ID
	task.PublicID = uuid.NewString()
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	occs, err := s.materializer.Materialize(ctx, task, s.Horizon(task, time.Now()))
	if err != nil {
		if delErr := s.taskRepo.Delete(ctx, user.ID, task.PublicID); delErr != nil {
			s.log.Error().Err(delErr).Str("task", task.PublicID).Msg("roll back task after failed materialize")
		}
		return nil, err
	}
	return occs, nil
}

// Update applies changed fields and re-materializes. The mutate callback
// edits the loaded task in place; validation and the revision guard run
// afterwards.
func (s *TaskService) Update(ctx context.Context, user *model.User, publicID string, mutate func(*model.Task) error) (*model.Task, []model.Occurrence, error) {
	task, err := s.taskRepo.FindByPublicID(ctx, user.ID, publicID)
	if err != nil {
		return nil, nil, err
	}
	if err := mutate(task); err != nil {
		return nil, nil, err
	}
	if err := validateRules(task); err != nil {
		return nil, nil, err
	}
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, nil, err
	}
	occs, err := s.materializer.Materialize(ctx, task, s.Horizon(task, time.Now()))
	if err != nil {
		return nil, nil, err
	}
	return task, occs, nil
}

func (s *TaskService) Get(ctx context.Context, user *model.User, publicID string) (*model.Task, []model.Occurrence, error) {
	task, err := s.taskRepo.FindByPublicID(ctx, user.ID, publicID)
	if err != nil {
		return nil, nil, err
	}
	occs, err := s.occRepo.ListForTask(ctx, task.ID)
	if err != nil {
		return nil, nil, err
	}
	return task, occs, nil
}

func (s *TaskService) List(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, user.ID)
}

// ListByDate returns the user's occurrences due on the given calendar day.
func (s *TaskService) ListByDate(ctx context.Context, user *model.User, day time.Time) ([]repository.DatedOccurrence, error) {
	year, month, d := day.Date()
	dayStart := time.Date(year, month, d, 0, 0, 0, 0, day.Location())
	return s.occRepo.ListByDate(ctx, user.ID, dayStart)
}

// ToggleCompletion flips completion. Non-repeating tasks complete at the
// definition (and their single occurrence follows); repeating tasks complete
// per occurrence, addressed by index. Flipping an occurrence of a
// completion-dates task re-materializes, since later due dates step from the
// recorded completion instants.
func (s *TaskService) ToggleCompletion(ctx context.Context, user *model.User, publicID string, occurrenceIndex int, now time.Time) (*model.Task, []model.Occurrence, error) {
	task, err := s.taskRepo.FindByPublicID(ctx, user.ID, publicID)
	if err != nil {
		return nil, nil, err
	}

	if !task.IsRepeating() {
		task.Completed = !task.Completed
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return nil, nil, err
		}
		occurrenceIndex = 0
		if _, err := s.occRepo.SetCompleted(ctx, task.ID, occurrenceIndex, task.Completed, now); err != nil {
			return nil, nil, err
		}
		occs, err := s.occRepo.ListForTask(ctx, task.ID)
		return task, occs, err
	}

	current, err := s.occRepo.Find(ctx, task.ID, occurrenceIndex)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.occRepo.SetCompleted(ctx, task.ID, occurrenceIndex, !current.Completed, now); err != nil {
		return nil, nil, err
	}
	if task.RepeatType == string(recurrence.BasisCompletionDates) {
		occs, err := s.materializer.Materialize(ctx, task, s.Horizon(task, now))
		if err != nil {
			return nil, nil, err
		}
		return task, occs, nil
	}
	occs, err := s.occRepo.ListForTask(ctx, task.ID)
	return task, occs, err
}

// Delete removes the definition and every occurrence row, completed or not.
func (s *TaskService) Delete(ctx context.Context, user *model.User, publicID string) error {
	return s.taskRepo.Delete(ctx, user.ID, publicID)
}

// RefreshHorizons re-materializes every repeating task against the rolling
// horizon. Idempotent per task; failures are logged and skipped so one bad
// definition cannot stall the rest.
func (s *TaskService) RefreshHorizons(ctx context.Context, now time.Time) error {
	tasks, err := s.taskRepo.ListRepeating(ctx)
	if err != nil {
		return err
	}
	for i := range tasks {
		task := &tasks[i]
		if _, err := s.materializer.Materialize(ctx, task, s.Horizon(task, now)); err != nil {
			s.log.Warn().Err(err).Str("task", task.PublicID).Msg("horizon refresh skipped task")
		}
	}
	return nil
}

func validateRules(task *model.Task) error {
	if _, err := task.RepeatRule(); err != nil {
		return err
	}
	if _, err := task.ReminderRule(); err != nil {
		return err
	}
	if _, err := task.DueAt(); err != nil {
		return fmt.Errorf("%w: %v", recurrence.ErrInvalidRule, err)
	}
	return nil
}
