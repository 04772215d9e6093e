package api

import (
	"net/http"

	"go.uber.org/zap"

	"habitarchitect/internal/version"
)

// HandleVersion returns build and runtime version information
func (s *Server) HandleVersion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	dbVersion, err := s.db.GetMigrationVersion(ctx)
	if err != nil {
		s.logger.Warn("Failed to read migration version", zap.Error(err))
		dbVersion = 0
	}

	respondJSON(w, http.StatusOK, version.Get(s.config.Env, dbVersion))
}

// HandleHealthz reports liveness including database connectivity
func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	if err := s.db.HealthCheck(ctx); err != nil {
		s.logger.Error("Health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
