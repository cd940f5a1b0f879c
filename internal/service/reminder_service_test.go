package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/model"
)

type recordingNotifier struct {
	sent []string
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, _ int64, text string) error {
	if n.fail {
		return assert.AnError
	}
	n.sent = append(n.sent, text)
	return nil
}

func TestDispatchDueSendsOnceAndMarksNotified(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notifier := &recordingNotifier{}
	svc := NewReminderService(env.occRepo, env.userRepo, notifier, zerolog.Nop())

	task := env.createTask(t, func(task *model.Task) {
		task.Name = "dentist appointment"
	})
	_, err := env.materializer.Materialize(ctx, task, horizonFor(task))
	require.NoError(t, err)

	now := time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC) // past the 09:00 fire time
	require.NoError(t, svc.DispatchDue(ctx, now))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "dentist appointment")

	// Already notified: the next poll stays quiet.
	require.NoError(t, svc.DispatchDue(ctx, now.Add(time.Minute)))
	assert.Len(t, notifier.sent, 1)
}

func TestDispatchDueSkipsFutureAndCompleted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notifier := &recordingNotifier{}
	svc := NewReminderService(env.occRepo, env.userRepo, notifier, zerolog.Nop())

	future := env.createTask(t, func(task *model.Task) {
		task.Name = "future"
	})
	_, err := env.materializer.Materialize(ctx, future, horizonFor(future))
	require.NoError(t, err)

	done := env.createTask(t, func(task *model.Task) {
		task.Name = "done"
		task.AnchorDate = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	})
	_, err = env.materializer.Materialize(ctx, done, horizonFor(done))
	require.NoError(t, err)
	_, err = env.occRepo.SetCompleted(ctx, done.ID, 0, true, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Before either fire time minus the completed one: nothing to send.
	now := time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.DispatchDue(ctx, now))
	assert.Empty(t, notifier.sent)
}

func TestDispatchDueRetriesFailedSends(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	notifier := &recordingNotifier{fail: true}
	svc := NewReminderService(env.occRepo, env.userRepo, notifier, zerolog.Nop())

	task := env.createTask(t, nil)
	_, err := env.materializer.Materialize(ctx, task, horizonFor(task))
	require.NoError(t, err)

	now := time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)
	require.NoError(t, svc.DispatchDue(ctx, now))
	assert.Empty(t, notifier.sent)

	// Delivery recovers: the un-notified occurrence fires on the next poll.
	notifier.fail = false
	require.NoError(t, svc.DispatchDue(ctx, now.Add(time.Minute)))
	assert.Len(t, notifier.sent, 1)
}
