package api

import (
	"net/http"

	"go.uber.org/zap"
)

// HandleDemoSeed wipes the database and loads the curated demo dataset
func (s *Server) HandleDemoSeed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	result, err := s.db.SeedDemo(ctx)
	if err != nil {
		s.logger.Error("Failed to seed demo data", zap.Error(err))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to seed demo data", nil)
		return
	}

	s.logger.Info("Demo data seeded",
		zap.Int64("sprint_id", result.SprintID),
		zap.Int("sessions", len(result.Sessions)),
	)
	respondJSON(w, http.StatusCreated, result)
}
