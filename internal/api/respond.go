package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"habitarchitect/internal/db"
)

// Canonical API error identifiers
const (
	CodeSprintNotFound   = "SPRINT_NOT_FOUND"
	CodeHabitNotFound    = "HABIT_NOT_FOUND"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeSprintIDMismatch = "SPRINT_ID_MISMATCH"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeUnexpectedError  = "UNEXPECTED_ERROR"
)

// ErrorResponse is the uniform error contract returned by the API
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// respondJSON writes v as a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError writes the uniform error payload
func respondError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	respondJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// respondStoreError maps a store error to the API error contract. notFoundCode
// and message describe the entity the caller was resolving.
func respondStoreError(w http.ResponseWriter, err error, notFoundCode, message string, id int64) {
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFoundCode, message, map[string]any{"id": id})
		return
	}
	respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "unexpected error", nil)
}
