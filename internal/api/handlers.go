package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskplanner/internal/model"
	"taskplanner/internal/recurrence"
	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

// TaskHandler serves the task CRUD surface.
type TaskHandler struct {
	tasks *service.TaskService
	log   zerolog.Logger
}

func NewTaskHandler(tasks *service.TaskService, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := req.validateCreate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := &model.Task{
		Priority: model.PriorityNone,
		Reminder: model.ReminderOnTime,
		Repeat:   model.RepeatNone,
	}
	if err := req.apply(task); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	occs, err := h.tasks.Create(r.Context(), userFrom(r), task)
	if err != nil {
		h.fail(w, r, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task, occs))
}

// GetTasks handles GET /api/tasks.
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context(), userFrom(r))
	if err != nil {
		h.fail(w, r, err, "list tasks")
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i], nil))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTasksByDate handles GET /api/tasks/by-date?date=YYYY-MM-DD.
func (h *TaskHandler) GetTasksByDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	rows, err := h.tasks.ListByDate(r.Context(), userFrom(r), day)
	if err != nil {
		h.fail(w, r, err, "list tasks by date")
		return
	}
	writeJSON(w, http.StatusOK, toDayResponse(rows))
}

// GetTask handles GET /api/tasks/{taskID}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, occs, err := h.tasks.Get(r.Context(), userFrom(r), mux.Vars(r)["taskID"])
	if err != nil {
		h.fail(w, r, err, "get task")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, occs))
}

// UpdateTask handles PATCH /api/tasks/{taskID}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	task, occs, err := h.tasks.Update(r.Context(), userFrom(r), mux.Vars(r)["taskID"], func(t *model.Task) error {
		return req.apply(t)
	})
	if err != nil {
		var invalid *fieldError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		h.fail(w, r, err, "update task")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, occs))
}

// DeleteTask handles DELETE /api/tasks/{taskID}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), userFrom(r), mux.Vars(r)["taskID"]); err != nil {
		h.fail(w, r, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleCompletion handles PATCH /api/tasks/{taskID}/toggle-completion.
// Repeating tasks address one occurrence with ?occurrence=N.
func (h *TaskHandler) ToggleCompletion(w http.ResponseWriter, r *http.Request) {
	index := 0
	if raw := r.URL.Query().Get("occurrence"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "occurrence must be a non-negative integer")
			return
		}
		index = parsed
	}

	task, occs, err := h.tasks.ToggleCompletion(r.Context(), userFrom(r), mux.Vars(r)["taskID"], index, time.Now())
	if err != nil {
		h.fail(w, r, err, "toggle completion")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, occs))
}

// fail maps the engine's error taxonomy onto status codes: invalid rules and
// oversized horizons are the caller's to fix (400), revision races retryable
// (409), unknown rows 404, everything else an opaque 500 with the detail in
// the log only.
func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, recurrence.ErrInvalidRule):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recurrence.ErrHorizonTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrReconciliationConflict):
		writeError(w, http.StatusConflict, "Task was modified concurrently, retry")
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msgf("%s failed", action)
		writeError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}
