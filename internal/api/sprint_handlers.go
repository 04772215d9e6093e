package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"habitarchitect/internal/db"
)

// SprintResponse is the sprint representation returned to clients
type SprintResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	GoalText  string    `json:"goal_text"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSprintRequest is the payload for creating a sprint
type CreateSprintRequest struct {
	Title     string `json:"title"`
	GoalText  string `json:"goal_text"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status,omitempty"`
}

// UpdateSprintStatusRequest is the payload for updating sprint status only
type UpdateSprintStatusRequest struct {
	Status string `json:"status"`
}

func toSprintResponse(s *db.Sprint) SprintResponse {
	return SprintResponse{
		ID:        s.ID,
		Title:     s.Title,
		GoalText:  s.GoalText,
		StartDate: s.StartDate.Format("2006-01-02"),
		EndDate:   s.EndDate.Format("2006-01-02"),
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// parseIDParam extracts a positive integer URL parameter
func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// parseTimestamp accepts RFC 3339 timestamps with or without a zone offset.
// Naive timestamps are interpreted as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}

// HandleListSprints returns all sprints in id order
func (s *Server) HandleListSprints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	sprints, err := s.db.ListSprints(ctx)
	if err != nil {
		s.logger.Error("Failed to list sprints", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to list sprints", nil)
		return
	}

	resp := make([]SprintResponse, 0, len(sprints))
	for i := range sprints {
		resp = append(resp, toSprintResponse(&sprints[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleCreateSprint creates a new sprint
func (s *Server) HandleCreateSprint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	var req CreateSprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid request body", nil)
		return
	}

	details := map[string]any{}
	if req.Title == "" {
		details["title"] = "required"
	}
	if req.GoalText == "" {
		details["goal_text"] = "required"
	}
	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		details["start_date"] = "must be a date in YYYY-MM-DD format"
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, time.UTC)
	if err != nil {
		details["end_date"] = "must be a date in YYYY-MM-DD format"
	}
	status := db.SprintStatus(req.Status)
	if req.Status == "" {
		status = db.SprintPlanned
	} else if !status.Valid() {
		details["status"] = "must be one of planned, active, completed, cancelled"
	}
	if len(details) > 0 {
		respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "validation failed", details)
		return
	}

	sprint, err := s.db.CreateSprint(ctx, db.CreateSprintParams{
		Title:     req.Title,
		GoalText:  req.GoalText,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    status,
	})
	if err != nil {
		s.logger.Error("Failed to create sprint", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to create sprint", nil)
		return
	}

	respondJSON(w, http.StatusCreated, toSprintResponse(sprint))
}

// HandleGetSprint returns a single sprint
func (s *Server) HandleGetSprint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	sprint, err := s.db.GetSprint(ctx, id)
	if err != nil {
		respondStoreError(w, err, CodeSprintNotFound, fmt.Sprintf("Sprint %d not found", id), id)
		return
	}

	respondJSON(w, http.StatusOK, toSprintResponse(sprint))
}

// HandleUpdateSprintStatus changes a sprint's status
func (s *Server) HandleUpdateSprintStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	var req UpdateSprintStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid request body", nil)
		return
	}

	status := db.SprintStatus(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusUnprocessableEntity, CodeValidationError, "validation failed",
			map[string]any{"status": "must be one of planned, active, completed, cancelled"})
		return
	}

	sprint, err := s.db.UpdateSprintStatus(ctx, id, status)
	if err != nil {
		respondStoreError(w, err, CodeSprintNotFound, fmt.Sprintf("Sprint %d not found", id), id)
		return
	}

	respondJSON(w, http.StatusOK, toSprintResponse(sprint))
}

// HandleDeleteSprint removes a sprint together with its habits and sessions
func (s *Server) HandleDeleteSprint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	if err := s.db.DeleteSprint(ctx, id); err != nil {
		respondStoreError(w, err, CodeSprintNotFound, fmt.Sprintf("Sprint %d not found", id), id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
