package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// fieldError is a request-validation failure: always the caller's fault,
// always a 400.
type fieldError struct {
	msg string
}

func (e *fieldError) Error() string { return e.msg }

func badField(format string, args ...any) error {
	return &fieldError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
