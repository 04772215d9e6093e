package api

import (
	"net/http"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"habitarchitect/internal/version"
)

var (
	openapiOnce sync.Once
	openapiDoc  []byte
	openapiErr  error
)

func openapiSpec() map[string]any {
	errorRef := map[string]any{"$ref": "#/components/schemas/Error"}
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "HabitArchitect API",
			"version": version.Version,
		},
		"paths": map[string]any{
			"/sprints": map[string]any{
				"get":  map[string]any{"summary": "List sprints", "responses": map[string]any{"200": map[string]any{"description": "OK"}}},
				"post": map[string]any{"summary": "Create sprint", "responses": map[string]any{"201": map[string]any{"description": "Created"}, "422": map[string]any{"description": "Validation error"}}},
			},
			"/sprints/overview": map[string]any{
				"get": map[string]any{"summary": "Aggregated summary of every sprint", "responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/sprints/{id}": map[string]any{
				"get":    map[string]any{"summary": "Get sprint", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}}},
				"delete": map[string]any{"summary": "Delete sprint with its habits and sessions", "responses": map[string]any{"204": map[string]any{"description": "Deleted"}, "404": map[string]any{"description": "Not found"}}},
			},
			"/sprints/{id}/status": map[string]any{
				"patch": map[string]any{"summary": "Update sprint status", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}, "422": map[string]any{"description": "Validation error"}}},
			},
			"/sprints/{id}/stats": map[string]any{
				"get": map[string]any{"summary": "Detailed statistics of one sprint", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}}},
			},
			"/sprints/{id}/habits": map[string]any{
				"get":  map[string]any{"summary": "List sprint habits", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}}},
				"post": map[string]any{"summary": "Create habit", "responses": map[string]any{"201": map[string]any{"description": "Created"}, "400": map[string]any{"description": "Sprint id mismatch"}, "422": map[string]any{"description": "Validation error"}}},
			},
			"/habits/{id}": map[string]any{
				"delete": map[string]any{"summary": "Delete habit, keeping its sessions", "responses": map[string]any{"204": map[string]any{"description": "Deleted"}, "404": map[string]any{"description": "Not found"}}},
			},
			"/sprints/{id}/sessions": map[string]any{
				"get":  map[string]any{"summary": "List sprint sessions, optionally filtered by status", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}}},
				"post": map[string]any{"summary": "Plan session", "responses": map[string]any{"201": map[string]any{"description": "Created"}, "400": map[string]any{"description": "Sprint id mismatch"}, "422": map[string]any{"description": "Validation error"}}},
			},
			"/sessions/{id}/complete": map[string]any{
				"patch": map[string]any{"summary": "Mark session done", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}, "422": map[string]any{"description": "Validation error"}}},
			},
			"/sessions/{id}/skip": map[string]any{
				"patch": map[string]any{"summary": "Mark session skipped", "responses": map[string]any{"200": map[string]any{"description": "OK"}, "404": map[string]any{"description": "Not found"}}},
			},
			"/demo/seed": map[string]any{
				"post": map[string]any{"summary": "Reset the database and load demo data", "responses": map[string]any{"201": map[string]any{"description": "Seeded"}}},
			},
			"/version": map[string]any{
				"get": map[string]any{"summary": "Build and runtime version information", "responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type":     "object",
					"required": []string{"code", "message"},
					"properties": map[string]any{
						"code":    map[string]any{"type": "string"},
						"message": map[string]any{"type": "string"},
						"details": map[string]any{"type": "object", "nullable": true},
					},
				},
			},
			"responses": map[string]any{
				"Error": map[string]any{
					"description": "Uniform error payload",
					"content": map[string]any{
						"application/json": map[string]any{"schema": errorRef},
					},
				},
			},
		},
	}
}

// HandleOpenAPI serves the API description as YAML
func (s *Server) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	openapiOnce.Do(func() {
		openapiDoc, openapiErr = yaml.Marshal(openapiSpec())
	})
	if openapiErr != nil {
		s.logger.Error("Failed to render OpenAPI document", zap.Error(openapiErr))
		respondError(w, http.StatusInternalServerError, CodeUnexpectedError, "failed to render OpenAPI document", nil)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(openapiDoc)
}
