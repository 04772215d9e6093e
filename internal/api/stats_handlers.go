package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"habitarchitect/internal/db"
)

// SprintOverviewResponse is one aggregated row per sprint. completion_rate is
// null when the sprint has no sessions and total_actual_minutes is null when
// no session has an actual duration recorded.
type SprintOverviewResponse struct {
	SprintID            int64    `json:"sprint_id"`
	Title               string   `json:"title"`
	Status              string   `json:"status"`
	HabitsCount         int      `json:"habits_count"`
	SessionsCount       int      `json:"sessions_count"`
	DoneSessions        int      `json:"done_sessions"`
	CompletionRate      *float64 `json:"completion_rate"`
	TotalPlannedMinutes int      `json:"total_planned_minutes"`
	TotalActualMinutes  *int     `json:"total_actual_minutes"`
}

// SprintStatsResponse is the detailed statistics for one sprint. Here
// completion_rate is 0 rather than null when the sprint has no sessions.
type SprintStatsResponse struct {
	SprintID            int64    `json:"sprint_id"`
	TotalSessions       int      `json:"total_sessions"`
	DoneSessions        int      `json:"done_sessions"`
	SkippedSessions     int      `json:"skipped_sessions"`
	CompletionRate      float64  `json:"completion_rate"`
	TotalPlannedMinutes int      `json:"total_planned_minutes"`
	TotalActualMinutes  int      `json:"total_actual_minutes"`
	AvgDifficulty       *float64 `json:"avg_difficulty"`
	AvgMood             *float64 `json:"avg_mood"`
}

func toOverviewResponse(o *db.SprintOverview) SprintOverviewResponse {
	return SprintOverviewResponse{
		SprintID:            o.SprintID,
		Title:               o.Title,
		Status:              string(o.Status),
		HabitsCount:         o.HabitsCount,
		SessionsCount:       o.SessionsCount,
		DoneSessions:        o.DoneSessions,
		CompletionRate:      o.CompletionRate,
		TotalPlannedMinutes: o.TotalPlannedMinutes,
		TotalActualMinutes:  o.TotalActualMinutes,
	}
}

// HandleSprintOverview returns the aggregated summary of every sprint
func (s *Server) HandleSprintOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	rows, err := s.db.Overview(ctx)
	if err != nil {
		s.logger.Error("Failed to compute sprint overview", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to compute overview", nil)
		return
	}

	resp := make([]SprintOverviewResponse, 0, len(rows))
	for i := range rows {
		resp = append(resp, toOverviewResponse(&rows[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleSprintStats returns the detailed statistics of one sprint
func (s *Server) HandleSprintStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "invalid sprint id", nil)
		return
	}

	stats, err := s.db.SprintStats(ctx, id)
	if err != nil {
		respondStoreError(w, err, CodeSprintNotFound, fmt.Sprintf("Sprint %d not found", id), id)
		return
	}

	respondJSON(w, http.StatusOK, SprintStatsResponse{
		SprintID:            stats.SprintID,
		TotalSessions:       stats.TotalSessions,
		DoneSessions:        stats.DoneSessions,
		SkippedSessions:     stats.SkippedSessions,
		CompletionRate:      stats.CompletionRate,
		TotalPlannedMinutes: stats.TotalPlannedMinutes,
		TotalActualMinutes:  stats.TotalActualMinutes,
		AvgDifficulty:       stats.AvgDifficulty,
		AvgMood:             stats.AvgMood,
	})
}
