package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskplanner/internal/model"
	"taskplanner/internal/notify"
	"taskplanner/internal/repository"
)

// ReminderService fires due reminders: it selects occurrences whose fire
// instant has passed and that nobody was told about yet, pushes them through
// the notifier and stamps them notified. Past fire times are delivered
// immediately rather than dropped.
type ReminderService struct {
	occRepo  *repository.OccurrenceRepository
	userRepo *repository.UserRepository
	notifier notify.Notifier
	log      zerolog.Logger
}

func NewReminderService(occRepo *repository.OccurrenceRepository, userRepo *repository.UserRepository, notifier notify.Notifier, log zerolog.Logger) *ReminderService {
	return &ReminderService{occRepo: occRepo, userRepo: userRepo, notifier: notifier, log: log}
}

// DispatchDue delivers every reminder that became due by now. A failed send
// leaves the occurrence un-notified so the next poll retries it.
func (s *ReminderService) DispatchDue(ctx context.Context, now time.Time) error {
	due, err := s.occRepo.ListDueReminders(ctx, now, 100)
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}

	for _, d := range due {
		user, err := s.userRepo.FindByID(ctx, d.Task.UserID)
		if err != nil {
			s.log.Warn().Err(err).Str("task", d.Task.PublicID).Msg("reminder without resolvable owner")
			continue
		}
		text := formatReminder(d, now)
		if err := s.notifier.Send(ctx, user.TelegramChatID, text); err != nil {
			s.log.Warn().Err(err).Str("task", d.Task.PublicID).Int("occurrence", d.Occurrence.OccurrenceIndex).
				Msg("reminder delivery failed, will retry")
			continue
		}
		if err := s.occRepo.MarkNotified(ctx, d.Occurrence.ID, now); err != nil {
			return fmt.Errorf("mark notified: %w", err)
		}
	}
	return nil
}

func formatReminder(d repository.DueReminder, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⏰ <b>%s</b>", html.EscapeString(strings.TrimSpace(d.Task.Name))))

	due := d.Occurrence.DueAt.In(now.Location())
	if due.Before(now) {
		sb.WriteString(fmt.Sprintf("\nwas due %s", due.Format("2006-01-02 15:04")))
	} else {
		sb.WriteString(fmt.Sprintf("\ndue %s", due.Format("2006-01-02 15:04")))
	}
	if d.Task.Priority != "" && d.Task.Priority != model.PriorityNone {
		sb.WriteString(fmt.Sprintf("\npriority: %s", d.Task.Priority))
	}
	return sb.String()
}
