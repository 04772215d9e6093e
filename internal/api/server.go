package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"habitarchitect/internal/config"
	"habitarchitect/internal/db"
)

// Server holds the application dependencies
type Server struct {
	db     *db.DB
	config *config.Config
	logger *zap.Logger
}

// NewServer creates a new API server
func NewServer(database *db.DB, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		db:     database,
		config: cfg,
		logger: logger,
	}
}

// queryContext derives a per-request context bounded by the configured
// database query timeout.
func (s *Server) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := s.config.DBQueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}
