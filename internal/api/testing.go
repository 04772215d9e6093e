package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"habitarchitect/internal/config"
	"habitarchitect/internal/db"
)

// TestServer holds test server dependencies
type TestServer struct {
	*Server
	DB *db.DB
}

// NewTestServer creates a new test server with in-memory SQLite database
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	logger := zaptest.NewLogger(t)

	cfg := db.Config{
		DBPath:         ":memory:",
		MigrationsPath: "./../../internal/db/migrations",
	}

	database, err := db.New(cfg, logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	testCfg := &config.Config{
		Env:            "test",
		DBQueryTimeout: 5 * time.Second,
	}

	server := NewServer(database, testCfg, logger)

	return &TestServer{
		Server: server,
		DB:     database,
	}
}

// Close cleans up test server resources
func (ts *TestServer) Close() {
	if ts.DB != nil {
		ts.DB.Close()
	}
}

// CreateTestSprint inserts a sprint directly and returns its ID
func (ts *TestServer) CreateTestSprint(t *testing.T, title, status string) int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	var id int64
	err := ts.DB.QueryRowContext(ctx, `
		INSERT INTO sprints (title, goal_text, start_date, end_date, status, created_at, updated_at)
		VALUES (?, 'test goal', '2026-08-17', '2026-08-23', ?, ?, ?)
		RETURNING id`,
		title, status, now, now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test sprint: %v", err)
	}

	return id
}

// CreateTestHabit inserts a habit directly and returns its ID
func (ts *TestServer) CreateTestHabit(t *testing.T, sprintID int64, name string, target int) int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	var id int64
	err := ts.DB.QueryRowContext(ctx, `
		INSERT INTO habits (sprint_id, name, target_sessions_per_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		sprintID, name, target, now, now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test habit: %v", err)
	}

	return id
}

// CreateTestSession inserts a session directly and returns its ID
func (ts *TestServer) CreateTestSession(t *testing.T, sprintID int64, plannedStart time.Time, plannedDuration int, status string) int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	var id int64
	err := ts.DB.QueryRowContext(ctx, `
		INSERT INTO sessions (sprint_id, planned_start, planned_duration_min, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		sprintID, plannedStart.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
		plannedDuration, status, now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return id
}

// MakeRequest is a helper to make HTTP requests in tests
// Returns both the ResponseRecorder and the Request for testing
func MakeRequest(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var reqBody []byte
	var err error
	if body != nil {
		reqBody, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	return httptest.NewRecorder(), req
}

// MakeParamRequest creates an HTTP request carrying chi URL params
func MakeParamRequest(t *testing.T, method, path string, body interface{}, urlParams map[string]string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	rec, req := MakeRequest(t, method, path, body)

	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range urlParams {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return rec, req
}

// DecodeJSON decodes a JSON response into the provided interface
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertStatusCode checks if the response status code matches expected
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("Status code mismatch: got %d, want %d", got, want)
	}
}

// AssertError checks if the error response matches the expected status and code
func AssertError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) ErrorResponse {
	t.Helper()

	AssertStatusCode(t, rec.Code, wantStatus)

	var errResp ErrorResponse
	DecodeJSON(t, rec, &errResp)

	if wantCode != "" && !strings.Contains(errResp.Code, wantCode) {
		t.Errorf("Error code %q does not contain %q", errResp.Code, wantCode)
	}

	return errResp
}
