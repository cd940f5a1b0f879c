package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"taskplanner/internal/repository"
)

// NewRouter wires the task CRUD surface under /api with auth and request
// logging applied to every route.
func NewRouter(handler *TaskHandler, users *repository.UserRepository, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger(log))

	sub := router.PathPrefix("/api/tasks").Subrouter()
	sub.Use(Auth(users))

	sub.HandleFunc("", handler.CreateTask).Methods(http.MethodPost)
	sub.HandleFunc("", handler.GetTasks).Methods(http.MethodGet)
	sub.HandleFunc("/by-date", handler.GetTasksByDate).Methods(http.MethodGet)
	sub.HandleFunc("/{taskID}", handler.GetTask).Methods(http.MethodGet)
	sub.HandleFunc("/{taskID}", handler.UpdateTask).Methods(http.MethodPatch)
	sub.HandleFunc("/{taskID}", handler.DeleteTask).Methods(http.MethodDelete)
	sub.HandleFunc("/{taskID}/toggle-completion", handler.ToggleCompletion).Methods(http.MethodPatch)

	return router
}
