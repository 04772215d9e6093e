package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"habitarchitect/internal/db"
)

// SessionResponse is the session representation returned to clients
type SessionResponse struct {
	ID                 int64      `json:"id"`
	SprintID           int64      `json:"sprint_id"`
	HabitID            *int64     `json:"habit_id"`
	PlannedStart       time.Time  `json:"planned_start"`
	PlannedDurationMin int        `json:"planned_duration_min"`
	ActualStart        *time.Time `json:"actual_start"`
	ActualDurationMin  *int       `json:"actual_duration_min"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes"`
	Difficulty         *int       `json:"difficulty"`
	Mood               *int       `json:"mood"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CreateSessionRequest is the payload for scheduling a session. Timestamps
// accept RFC 3339 with or without a zone offset.
type CreateSessionRequest struct {
	SprintID           int64   `json:"sprint_id"`
	HabitID            *int64  `json:"habit_id,omitempty"`
	PlannedStart       string  `json:"planned_start"`
	PlannedDurationMin int     `json:"planned_duration_min"`
	ActualStart        *string `json:"actual_start,omitempty"`
	ActualDurationMin  *int    `json:"actual_duration_min,omitempty"`
	Status             string  `json:"status,omitempty"`
	Notes              *string `json:"notes,omitempty"`
	Difficulty         *int    `json:"difficulty,omitempty"`
	Mood               *int    `json:"mood,omitempty"`
}

// CompleteSessionRequest is the payload to mark a session as completed
type CompleteSessionRequest struct {
	ActualStart       string  `json:"actual_start"`
	ActualDurationMin int     `json:"actual_duration_min"`
	Notes             *string `json:"notes,omitempty"`
	Difficulty        *int    `json:"difficulty,omitempty"`
	Mood              *int    `json:"mood,omitempty"`
}

// SkipSessionRequest optionally attaches notes when skipping a session
type SkipSessionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func toSessionResponse(sess *db.Session) SessionResponse {
	return SessionResponse{
		ID:                 sess.ID,
		SprintID:           sess.SprintID,
		HabitID:            sess.HabitID,
		PlannedStart:       sess.PlannedStart,
		PlannedDurationMin: sess.PlannedDurationMin,
		ActualStart:        sess.ActualStart,
		ActualDurationMin:  sess.ActualDurationMin,
		Status:             string(sess.Status),
		Notes:              sess.Notes,
		Difficulty:         sess.Difficulty,
		Mood:               sess.Mood,
		CreatedAt:          sess.CreatedAt,
	}
}

func validateRating(details map[string]any, field string, value *int) {
	if value != nil && (*value < 1 || *value > 5) {
		details[field] = "must be between 1 and 5"
	}
}

// HandleCreateSession schedules a new session inside a sprint. The body
// sprint_id must match the path sprint id, and an optional habit must belong
// to the same sprint; nothing is written otherwise.
func (s *Server) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	sprintID, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid request body", nil)
		return
	}

	if _, err := s.db.GetSprint(ctx, sprintID); err != nil {
		respondStoreError(w, err, CodeSprintNotFound, fmt.Sprintf("Sprint %d not found", sprintID), sprintID)
		return
	}

	if req.SprintID != sprintID {
		respondError(w, http.StatusBadRequest, CodeSprintIDMismatch, "sprint_id mismatch",
			map[string]any{"path_sprint_id": sprintID, "body_sprint_id": req.SprintID})
		return
	}

	details := map[string]any{}
	plannedStart, err := parseTimestamp(req.PlannedStart)
	if err != nil {
		details["planned_start"] = "must be an RFC 3339 timestamp"
	}
	if req.PlannedDurationMin < 1 {
		details["planned_duration_min"] = "must be >= 1"
	}
	var actualStart *time.Time
	if req.ActualStart != nil {
		t, err := parseTimestamp(*req.ActualStart)
		if err != nil {
			details["actual_start"] = "must be an RFC 3339 timestamp"
		} else {
			actualStart = &t
		}
	}
	if req.ActualDurationMin != nil && *req.ActualDurationMin < 1 {
		details["actual_duration_min"] = "must be >= 1"
	}
	status := db.SessionStatus(req.Status)
	if req.Status == "" {
		status = db.SessionPlanned
	} else if !status.Valid() {
		details["status"] = "must be one of planned, done, skipped"
	}
	validateRating(details, "difficulty", req.Difficulty)
	validateRating(details, "mood", req.Mood)

	// An assigned habit must belong to the same sprint as the session
	if req.HabitID != nil {
		habit, err := s.db.GetHabit(ctx, *req.HabitID)
		switch {
		case err != nil:
			respondStoreError(w, err, CodeHabitNotFound, fmt.Sprintf("Habit %d not found", *req.HabitID), *req.HabitID)
			return
		case habit.SprintID != sprintID:
			details["habit_id"] = "habit does not belong to sprint"
		}
	}

	if len(details) > 0 {
		if _, mismatch := details["habit_id"]; mismatch {
			details["habit_id"] = map[string]any{"habit_id": *req.HabitID, "sprint_id": sprintID}
			respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "habit does not belong to sprint", details)
			return
		}
		respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "validation failed", details)
		return
	}

	session, err := s.db.CreateSession(ctx, db.CreateSessionParams{
		SprintID:           sprintID,
		HabitID:            req.HabitID,
		PlannedStart:       plannedStart,
		PlannedDurationMin: req.PlannedDurationMin,
		ActualStart:        actualStart,
		ActualDurationMin:  req.ActualDurationMin,
		Status:             status,
		Notes:              req.Notes,
		Difficulty:         req.Difficulty,
		Mood:               req.Mood,
	})
	if err != nil {
		s.logger.Error("Failed to create session", zap.Int64("sprint_id", sprintID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to create session", nil)
		return
	}

	respondJSON(w, http.StatusCreated, toSessionResponse(session))
}

// HandleListSessions returns a sprint's sessions, optionally filtered by
// status via the ?status= query parameter.
func (s *Server) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	sprintID, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	if _, err := s.db.GetSprint(ctx, sprintID); err != nil {
		respondStoreError(w, err, CodeSprintNotFound, fmt.Sprintf("Sprint %d not found", sprintID), sprintID)
		return
	}

	var filter *db.SessionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		status := db.SessionStatus(v)
		if !status.Valid() {
			respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "validation failed",
				map[string]any{"status": "must be one of planned, done, skipped"})
			return
		}
		filter = &status
	}

	sessions, err := s.db.ListSessions(ctx, sprintID, filter)
	if err != nil {
		s.logger.Error("Failed to list sessions", zap.Int64("sprint_id", sprintID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to list sessions", nil)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, toSessionResponse(&sessions[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleCompleteSession marks a session done and records the actual fields
func (s *Server) HandleCompleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid session id", nil)
		return
	}

	var req CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid request body", nil)
		return
	}

	details := map[string]any{}
	actualStart, err := parseTimestamp(req.ActualStart)
	if err != nil {
		details["actual_start"] = "must be an RFC 3339 timestamp"
	}
	if req.ActualDurationMin < 1 {
		details["actual_duration_min"] = "must be >= 1"
	}
	validateRating(details, "difficulty", req.Difficulty)
	validateRating(details, "mood", req.Mood)
	if len(details) > 0 {
		respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "validation failed", details)
		return
	}

	session, err := s.db.CompleteSession(ctx, id, db.CompleteSessionParams{
		ActualStart:       actualStart,
		ActualDurationMin: req.ActualDurationMin,
		Notes:             req.Notes,
		Difficulty:        req.Difficulty,
		Mood:              req.Mood,
	})
	if err != nil {
		respondStoreError(w, err, CodeSessionNotFound, fmt.Sprintf("Session %d not found", id), id)
		return
	}

	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleSkipSession marks a session skipped, optionally attaching notes
func (s *Server) HandleSkipSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid session id", nil)
		return
	}

	// The skip payload is optional; an empty body skips without notes.
	var req SkipSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid request body", nil)
		return
	}

	session, err := s.db.SkipSession(ctx, id, req.Notes)
	if err != nil {
		respondStoreError(w, err, CodeSessionNotFound, fmt.Sprintf("Session %d not found", id), id)
		return
	}

	respondJSON(w, http.StatusOK, toSessionResponse(session))
}
