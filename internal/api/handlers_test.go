package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

const testToken = "test-token"

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	taskRepo := repository.NewTaskRepository(db)
	occRepo := repository.NewOccurrenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	_, err = userRepo.EnsureToken(context.Background(), "tester", testToken, 0)
	require.NoError(t, err)

	materializer := service.NewMaterializer(occRepo, zerolog.Nop())
	tasks := service.NewTaskService(taskRepo, occRepo, materializer, 365, zerolog.Nop())
	handler := NewTaskHandler(tasks, zerolog.Nop())
	return NewRouter(handler, userRepo, zerolog.Nop())
}

func do(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createPayload() map[string]any {
	return map[string]any{
		"taskName": "water the plants",
		"priority": "medium",
		"date":     "2030-06-03",
		"time":     "09:00",
	}
}

func TestRequiresBearerToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTaskReturnsOccurrences(t *testing.T) {
	router := newTestRouter(t)

	payload := createPayload()
	payload["repeat"] = "custom"
	payload["repeatType"] = "due-dates"
	payload["repeatFrequency"] = "week"
	payload["repeatCount"] = 4

	rec := do(t, router, http.MethodPost, "/api/tasks", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "water the plants", resp.TaskName)
	assert.Equal(t, "2030-06-03", resp.Date)
	require.Len(t, resp.Occurrences, 4)
	assert.Equal(t, 0, resp.Occurrences[0].OccurrenceIndex)
}

func TestCreateTaskValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{"missing name", func(p map[string]any) { delete(p, "taskName") }, "taskName is required"},
		{"bad date", func(p map[string]any) { p["date"] = "03.06.2030" }, "date must be YYYY-MM-DD"},
		{"bad priority", func(p map[string]any) { p["priority"] = "urgent" }, "unknown priority"},
		{"count out of range", func(p map[string]any) {
			p["repeat"] = "custom"
			p["repeatType"] = "due-dates"
			p["repeatFrequency"] = "day"
			p["repeatCount"] = 2000
		}, "repeatCount must be within 1..365"},
		{"custom without count", func(p map[string]any) {
			p["repeat"] = "custom"
			p["repeatType"] = "due-dates"
			p["repeatFrequency"] = "day"
		}, "count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := createPayload()
			tc.mutate(payload)
			rec := do(t, router, http.MethodPost, "/api/tasks", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tc.message)
		})
	}
}

func TestGetUnknownTask(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/tasks/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTasksByDate(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/tasks", createPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/tasks/by-date?date=2030-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []repository.DatedOccurrence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)

	rec = do(t, router, http.MethodGet, "/api/tasks/by-date?date=2030-06-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Empty(t, rows)

	rec = do(t, router, http.MethodGet, "/api/tasks/by-date?date=june-3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTask(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/tasks", createPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, router, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{"time": "14:30"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "14:30", updated.Time)
	require.Len(t, updated.Occurrences, 1)
	assert.Equal(t, 14, updated.Occurrences[0].DueAt.Hour())

	rec = do(t, router, http.MethodPatch, "/api/tasks/"+created.ID, map[string]any{"time": "half past two"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleCompletionEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/tasks", createPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, router, http.MethodPatch, fmt.Sprintf("/api/tasks/%s/toggle-completion", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.True(t, toggled.Completed)

	rec = do(t, router, http.MethodPatch, fmt.Sprintf("/api/tasks/%s/toggle-completion?occurrence=-1", created.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTask(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/tasks", createPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, router, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
