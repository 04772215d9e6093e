package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"habitarchitect/internal/api"
	"habitarchitect/internal/config"
	"habitarchitect/internal/db"
	"habitarchitect/internal/telemetry"
	"habitarchitect/internal/ui"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger := config.MustInitLogger(cfg.Env, cfg.LogLevel)
	defer logger.Sync() // Flush any buffered log entries

	logger.Info("Starting HabitArchitect API",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
	)

	// Initialize database with auto-migrations
	dbCfg := db.Config{
		Driver:         cfg.DBDriver,
		DBPath:         cfg.DBPath,
		DSN:            cfg.DBDSN,
		MigrationsPath: cfg.MigrationsPath,
	}

	database, err := db.New(dbCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	// Initialize telemetry (no-op without an OTLP endpoint)
	telemetryShutdown, err := telemetry.Init(context.Background(), cfg.OTLPEndpoint, "habitarchitect", cfg.Env, logger)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	// Create server with logger
	server := api.NewServer(database, cfg, logger)

	uiHandler, err := ui.NewHandler(database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize UI", zap.Error(err))
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Request size limit (1MB)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
			next.ServeHTTP(w, r)
		})
	})

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Get("/healthz", server.HandleHealthz)
	r.Get("/version", server.HandleVersion)
	r.Get("/openapi.yaml", server.HandleOpenAPI)

	// API routes
	r.Group(func(r chi.Router) {
		r.Use(api.RateLimitMiddleware(cfg.RateLimitRequests))

		// Sprint routes
		r.Get("/sprints", server.HandleListSprints)
		r.Post("/sprints", server.HandleCreateSprint)
		r.Get("/sprints/overview", server.HandleSprintOverview)
		r.Get("/sprints/{id}", server.HandleGetSprint)
		r.Patch("/sprints/{id}/status", server.HandleUpdateSprintStatus)
		r.Delete("/sprints/{id}", server.HandleDeleteSprint)
		r.Get("/sprints/{id}/stats", server.HandleSprintStats)

		// Habit routes
		r.Get("/sprints/{id}/habits", server.HandleListHabits)
		r.Post("/sprints/{id}/habits", server.HandleCreateHabit)
		r.Delete("/habits/{id}", server.HandleDeleteHabit)

		// Session routes
		r.Get("/sprints/{id}/sessions", server.HandleListSessions)
		r.Post("/sprints/{id}/sessions", server.HandleCreateSession)
		r.Patch("/sessions/{id}/complete", server.HandleCompleteSession)
		r.Patch("/sessions/{id}/skip", server.HandleSkipSession)

		// Demo data
		r.Post("/demo/seed", server.HandleDemoSeed)
	})

	// Server-rendered HTML surface
	r.Mount("/ui", uiHandler.Routes())

	// Create HTTP server
	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "habitarchitect"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for server errors
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive shutdown signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Info("Received shutdown signal, starting graceful shutdown", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Gracefully shutdown server
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
			if err := srv.Close(); err != nil {
				logger.Fatal("Failed to close server", zap.Error(err))
			}
		}

		logger.Info("Server stopped gracefully")
	}
}
