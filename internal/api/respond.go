package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/roach88/todos/internal/todo"
)

// Fixed response strings.
const (
	DetailNotFound    = "Todo not found"
	DetailInternal    = "Internal server error"
	DetailUnavailable = "Storage unavailable"
	MsgDeleted        = "Todo deleted successfully"
)

// maxBodyBytes caps create/update request bodies.
const maxBodyBytes = 1 << 20

// Detail is the error body.
type Detail struct {
	Detail string `json:"detail"`
}

// Message is the delete confirmation body.
type Message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, Detail{Detail: detail})
}

// fail maps an operation error to its HTTP outcome. Only unexpected errors
// are logged; their text never reaches the client.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case todo.IsValidation(err):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, todo.ErrNotFound):
		writeDetail(w, http.StatusNotFound, DetailNotFound)
	default:
		h.logger.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeDetail(w, http.StatusInternalServerError, DetailInternal)
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, &todo.ValidationError{Field: "id", Message: "must be an integer"}
	}
	return id, nil
}

func readInput(w http.ResponseWriter, r *http.Request) (todo.Input, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return todo.Input{}, &todo.ValidationError{Message: "request body too large"}
		}
		return todo.Input{}, &todo.ValidationError{Message: "unreadable request body"}
	}
	return todo.DecodeInput(data)
}
