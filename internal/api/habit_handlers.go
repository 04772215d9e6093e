package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"habitarchitect/internal/db"
)

// HabitResponse is the habit representation returned to clients
type HabitResponse struct {
	ID                   int64     `json:"id"`
	SprintID             int64     `json:"sprint_id"`
	Name                 string    `json:"name"`
	Description          *string   `json:"description"`
	TargetSessionsPerDay int       `json:"target_sessions_per_day"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// CreateHabitRequest is the payload for creating a habit within a sprint
type CreateHabitRequest struct {
	SprintID             int64   `json:"sprint_id"`
	Name                 string  `json:"name"`
	Description          *string `json:"description,omitempty"`
	TargetSessionsPerDay int     `json:"target_sessions_per_day"`
}

func toHabitResponse(h *db.Habit) HabitResponse {
	return HabitResponse{
		ID:                   h.ID,
		SprintID:             h.SprintID,
		Name:                 h.Name,
		Description:          h.Description,
		TargetSessionsPerDay: h.TargetSessionsPerDay,
		CreatedAt:            h.CreatedAt,
		UpdatedAt:            h.UpdatedAt,
	}
}

// HandleCreateHabit creates a habit inside a sprint. The body sprint_id must
// match the path sprint id; nothing is written otherwise.
func (s *Server) HandleCreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	sprintID, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	var req CreateHabitRequest
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
	if req.Name == "" {
		details["name"] = "required"
	}
	if req.TargetSessionsPerDay < 1 {
		details["target_sessions_per_day"] = "must be >= 1"
	}
	if len(details) > 0 {
		respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "validation failed", details)
		return
	}

	habit, err := s.db.CreateHabit(ctx, db.CreateHabitParams{
		SprintID:             sprintID,
		Name:                 req.Name,
		Description:          req.Description,
		TargetSessionsPerDay: req.TargetSessionsPerDay,
	})
	if err != nil {
		s.logger.Error("Failed to create habit", zap.Int64("sprint_id", sprintID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to create habit", nil)
		return
	}

	respondJSON(w, http.StatusCreated, toHabitResponse(habit))
}

// HandleListHabits returns all habits of a sprint
func (s *Server) HandleListHabits(w http.ResponseWriter, r *http.Request) {
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

	habits, err := s.db.ListHabits(ctx, sprintID)
	if err != nil {
		s.logger.Error("Failed to list habits", zap.Int64("sprint_id", sprintID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to list habits", nil)
		return
	}

	resp := make([]HabitResponse, 0, len(habits))
	for i := range habits {
		resp = append(resp, toHabitResponse(&habits[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleDeleteHabit removes a habit; its sessions keep existing with the
// habit reference cleared.
func (s *Server) HandleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid habit id", nil)
		return
	}

	if err := s.db.DeleteHabit(ctx, id); err != nil {
		respondStoreError(w, err, CodeHabitNotFound, fmt.Sprintf("Habit %d not found", id), id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
