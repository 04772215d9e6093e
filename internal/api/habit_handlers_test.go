package api

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestHandleCreateHabit(t *testing.T) {
	t.Run("creates habit", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		ts.CreateTestSprint(t, "Sprint", "active")

		rec, req := MakeParamRequest(t, http.MethodPost, "/sprints/1/habits", map[string]any{
			"sprint_id":               1,
			"name":                    "Morning math drills",
			"target_sessions_per_day": 2,
		}, map[string]string{"id": "1"})

		ts.HandleCreateHabit(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusCreated)

		var resp HabitResponse
		DecodeJSON(t, rec, &resp)
		if resp.SprintID != 1 || resp.Name != "Morning math drills" {
			t.Errorf("unexpected habit: %+v", resp)
		}
	})

	t.Run("404 beats mismatch for missing sprint", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		rec, req := MakeParamRequest(t, http.MethodPost, "/sprints/9/habits", map[string]any{
			"sprint_id":               1,
			"name":                    "Habit",
			"target_sessions_per_day": 1,
		}, map[string]string{"id": "9"})

		ts.HandleCreateHabit(rec, req)

		AssertError(t, rec, http.StatusNotFound, CodeSprintNotFound)
	})

	t.Run("mismatched sprint_id writes nothing", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		ts.CreateTestSprint(t, "One", "active")
		ts.CreateTestSprint(t, "Two", "active")

		rec, req := MakeParamRequest(t, http.MethodPost, "/sprints/1/habits", map[string]any{
			"sprint_id":               2,
			"name":                    "Habit",
			"target_sessions_per_day": 1,
		}, map[string]string{"id": "1"})

		ts.HandleCreateHabit(rec, req)

		errResp := AssertError(t, rec, http.StatusBadRequest, CodeSprintIDMismatch)
		if got := errResp.Details["path_sprint_id"].(float64); int64(got) != 1 {
			t.Errorf("expected path_sprint_id 1, got %v", got)
		}
		if got := errResp.Details["body_sprint_id"].(float64); int64(got) != 2 {
			t.Errorf("expected body_sprint_id 2, got %v", got)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var count int
		if err := ts.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits`).Scan(&count); err != nil {
			t.Fatalf("count query failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no habits persisted, got %d", count)
		}
	})

	t.Run("rejects zero target", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		ts.CreateTestSprint(t, "Sprint", "active")

		rec, req := MakeParamRequest(t, http.MethodPost, "/sprints/1/habits", map[string]any{
			"sprint_id":               1,
			"name":                    "Habit",
			"target_sessions_per_day": 0,
		}, map[string]string{"id": "1"})

		ts.HandleCreateHabit(rec, req)

		AssertError(t, rec, http.StatusUnprocessableEntity, CodeValidationError)
	})
}

func TestHandleListHabits(t *testing.T) {
	t.Run("returns habits sorted by name", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		sprintID := ts.CreateTestSprint(t, "Sprint", "active")
		ts.CreateTestHabit(t, sprintID, "Zeta review", 1)
		ts.CreateTestHabit(t, sprintID, "Alpha drills", 2)

		rec, req := MakeParamRequest(t, http.MethodGet, "/sprints/1/habits", nil,
			map[string]string{"id": "1"})

		ts.HandleListHabits(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusOK)

		var resp []HabitResponse
		DecodeJSON(t, rec, &resp)
		if len(resp) != 2 {
			t.Fatalf("expected 2 habits, got %d", len(resp))
		}
		if resp[0].Name != "Alpha drills" || resp[1].Name != "Zeta review" {
			t.Errorf("unexpected order: %q, %q", resp[0].Name, resp[1].Name)
		}
	})

	t.Run("404 for missing sprint", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		rec, req := MakeParamRequest(t, http.MethodGet, "/sprints/3/habits", nil,
			map[string]string{"id": "3"})

		ts.HandleListHabits(rec, req)

		AssertError(t, rec, http.StatusNotFound, CodeSprintNotFound)
	})
}

func TestHandleDeleteHabit(t *testing.T) {
	t.Run("clears habit reference on sessions", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		sprintID := ts.CreateTestSprint(t, "Sprint", "active")
		habitID := ts.CreateTestHabit(t, sprintID, "Habit", 1)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
		_, err := ts.DB.ExecContext(ctx, `
			INSERT INTO sessions (sprint_id, habit_id, planned_start, planned_duration_min, status, created_at)
			VALUES (?, ?, ?, 45, 'planned', ?)`,
			sprintID, habitID, now, now)
		if err != nil {
			t.Fatalf("failed to insert session: %v", err)
		}

		rec, req := MakeParamRequest(t, http.MethodDelete, "/habits/1", nil,
			map[string]string{"id": "1"})

		ts.HandleDeleteHabit(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusNoContent)

		var sessionCount, orphaned int
		if err := ts.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&sessionCount); err != nil {
			t.Fatalf("count query failed: %v", err)
		}
		if err := ts.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE habit_id IS NULL`).Scan(&orphaned); err != nil {
			t.Fatalf("count query failed: %v", err)
		}
		if sessionCount != 1 || orphaned != 1 {
			t.Errorf("expected session kept with habit_id cleared, got count=%d null=%d", sessionCount, orphaned)
		}
	})

	t.Run("404 for missing habit", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		rec, req := MakeParamRequest(t, http.MethodDelete, "/habits/4", nil,
			map[string]string{"id": "4"})

		ts.HandleDeleteHabit(rec, req)

		AssertError(t, rec, http.StatusNotFound, CodeHabitNotFound)
	})
}
