package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"questboard/internal/task"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parsePositiveInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// writeLifecycleError maps the named engine errors onto HTTP statuses.
// Precondition failures are client errors; anything else is a storage fault.
func writeLifecycleError(w http.ResponseWriter, err error) bool {
	var illegal *task.IllegalTransitionError
	switch {
	case err == nil:
		return false
	case errors.Is(err, task.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.As(err, &illegal),
		errors.Is(err, task.ErrTemplateUnavailable),
		errors.Is(err, task.ErrInstanceImmutable),
		errors.Is(err, task.ErrNotInReview),
		errors.Is(err, task.ErrNotCollectible),
		errors.Is(err, task.ErrTemplateInUse):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return false
	}
	return true
}
