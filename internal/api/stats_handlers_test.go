package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestHandleSprintOverview(t *testing.T) {
	t.Run("aggregates per sprint with null rate for empty sprints", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		// Sprint with 3 planned sessions, 1 completed with 45 actual minutes
		sprintID := ts.CreateTestSprint(t, "Busy", "active")
		ts.CreateTestHabit(t, sprintID, "Habit", 1)
		base := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
		done := ts.CreateTestSession(t, sprintID, base, 50, "planned")
		ts.CreateTestSession(t, sprintID, base.Add(time.Hour), 40, "planned")
		ts.CreateTestSession(t, sprintID, base.Add(2*time.Hour), 30, "planned")

		rec, req := MakeParamRequest(t, http.MethodPatch, "/sessions/1/complete", map[string]any{
			"actual_start":        "2026-08-18T09:00:00Z",
			"actual_duration_min": 45,
		}, map[string]string{"id": strconv.FormatInt(done, 10)})
		ts.HandleCompleteSession(rec, req)
		AssertStatusCode(t, rec.Code, http.StatusOK)

		// Sprint with nothing in it
		ts.CreateTestSprint(t, "Idle", "planned")

		rec, req = MakeRequest(t, http.MethodGet, "/sprints/overview", nil)
		ts.HandleSprintOverview(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusOK)

		var resp []SprintOverviewResponse
		DecodeJSON(t, rec, &resp)
		if len(resp) != 2 {
			t.Fatalf("expected 2 overview rows, got %d", len(resp))
		}

		busy := resp[0]
		if busy.SessionsCount != 3 || busy.DoneSessions != 1 || busy.HabitsCount != 1 {
			t.Errorf("unexpected counts: %+v", busy)
		}
		if busy.TotalPlannedMinutes != 120 {
			t.Errorf("expected 120 planned minutes, got %d", busy.TotalPlannedMinutes)
		}
		if busy.TotalActualMinutes == nil || *busy.TotalActualMinutes != 45 {
			t.Errorf("expected 45 actual minutes, got %v", busy.TotalActualMinutes)
		}
		if busy.CompletionRate == nil || !almostEqual(*busy.CompletionRate, 1.0/3.0) {
			t.Errorf("expected completion rate 1/3, got %v", busy.CompletionRate)
		}

		idle := resp[1]
		if idle.SessionsCount != 0 || idle.HabitsCount != 0 {
			t.Errorf("expected zero counts for empty sprint, got %+v", idle)
		}
		if idle.CompletionRate != nil {
			t.Errorf("expected null completion rate for empty sprint, got %v", *idle.CompletionRate)
		}
		if idle.TotalActualMinutes != nil {
			t.Errorf("expected null actual minutes for empty sprint, got %v", *idle.TotalActualMinutes)
		}
	})

	t.Run("empty database yields empty list", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		rec, req := MakeRequest(t, http.MethodGet, "/sprints/overview", nil)
		ts.HandleSprintOverview(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusOK)
		if body := rec.Body.String(); body != "[]\n" {
			t.Errorf("expected empty JSON array, got %q", body)
		}
	})
}

func TestHandleSprintStats(t *testing.T) {
	t.Run("zero rate not null for sprint without sessions", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		ts.CreateTestSprint(t, "Empty", "planned")

		rec, req := MakeParamRequest(t, http.MethodGet, "/sprints/1/stats", nil,
			map[string]string{"id": "1"})
		ts.HandleSprintStats(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusOK)

		var resp SprintStatsResponse
		DecodeJSON(t, rec, &resp)
		if resp.TotalSessions != 0 || resp.CompletionRate != 0 {
			t.Errorf("expected zeroed stats, got %+v", resp)
		}
		if resp.AvgDifficulty != nil || resp.AvgMood != nil {
			t.Errorf("expected null averages, got %+v", resp)
		}
	})

	t.Run("averages cover only done sessions", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		sprintID := ts.CreateTestSprint(t, "Sprint", "active")
		base := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
		ts.CreateTestSession(t, sprintID, base, 50, "planned")
		ts.CreateTestSession(t, sprintID, base.Add(time.Hour), 40, "planned")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// A skipped session with ratings must not pull the averages down
		_, err := ts.DB.ExecContext(ctx, `
			INSERT INTO sessions (sprint_id, planned_start, planned_duration_min, status, difficulty, mood, created_at)
			VALUES (?, ?, 30, 'skipped', 1, 1, ?)`,
			sprintID, base.Add(2*time.Hour).Format("2006-01-02T15:04:05.000000000Z07:00"),
			time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00"))
		if err != nil {
			t.Fatalf("failed to insert skipped session: %v", err)
		}

		rec, req := MakeParamRequest(t, http.MethodPatch, "/sessions/1/complete", map[string]any{
			"actual_start":        "2026-08-18T09:00:00Z",
			"actual_duration_min": 55,
			"difficulty":          4,
			"mood":                2,
		}, map[string]string{"id": "1"})
		ts.HandleCompleteSession(rec, req)
		AssertStatusCode(t, rec.Code, http.StatusOK)

		rec, req = MakeParamRequest(t, http.MethodPatch, "/sessions/2/complete", map[string]any{
			"actual_start":        "2026-08-18T10:00:00Z",
			"actual_duration_min": 35,
			"difficulty":          2,
			"mood":                4,
		}, map[string]string{"id": "2"})
		ts.HandleCompleteSession(rec, req)
		AssertStatusCode(t, rec.Code, http.StatusOK)

		rec, req = MakeParamRequest(t, http.MethodGet, "/sprints/1/stats", nil,
			map[string]string{"id": "1"})
		ts.HandleSprintStats(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusOK)

		var resp SprintStatsResponse
		DecodeJSON(t, rec, &resp)
		if resp.TotalSessions != 3 || resp.DoneSessions != 2 || resp.SkippedSessions != 1 {
			t.Errorf("unexpected counts: %+v", resp)
		}
		if !almostEqual(resp.CompletionRate, 2.0/3.0) {
			t.Errorf("expected completion rate 2/3, got %v", resp.CompletionRate)
		}
		if resp.TotalPlannedMinutes != 120 || resp.TotalActualMinutes != 90 {
			t.Errorf("unexpected minutes: %+v", resp)
		}
		if resp.AvgDifficulty == nil || !almostEqual(*resp.AvgDifficulty, 3.0) {
			t.Errorf("expected avg difficulty 3, got %v", resp.AvgDifficulty)
		}
		if resp.AvgMood == nil || !almostEqual(*resp.AvgMood, 3.0) {
			t.Errorf("expected avg mood 3, got %v", resp.AvgMood)
		}
	})

	t.Run("404 for missing sprint", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		rec, req := MakeParamRequest(t, http.MethodGet, "/sprints/12/stats", nil,
			map[string]string{"id": "12"})
		ts.HandleSprintStats(rec, req)

		AssertError(t, rec, http.StatusNotFound, CodeSprintNotFound)
	})
}

func TestHandleDemoSeed(t *testing.T) {
	t.Run("seeds curated dataset", func(t *testing.T) {
		ts := NewTestServer(t)
		defer ts.Close()

		// Pre-existing data must be wiped by the reseed
		ts.CreateTestSprint(t, "Old", "planned")

		rec, req := MakeRequest(t, http.MethodPost, "/demo/seed", nil)
		ts.HandleDemoSeed(rec, req)

		AssertStatusCode(t, rec.Code, http.StatusCreated)

		var seed struct {
			SprintID int64    `json:"sprint_id"`
			Habits   []string `json:"habits"`
			Sessions []struct {
				ID              int64  `json:"id"`
				Status          string `json:"status"`
				PlannedDuration int    `json:"planned_duration"`
			} `json:"sessions"`
		}
		DecodeJSON(t, rec, &seed)

		if len(seed.Habits) != 2 {
			t.Errorf("expected 2 habits, got %v", seed.Habits)
		}
		if len(seed.Sessions) != 6 {
			t.Fatalf("expected 6 sessions, got %d", len(seed.Sessions))
		}

		var done, skipped int
		for _, s := range seed.Sessions {
			switch s.Status {
			case "done":
				done++
			case "skipped":
				skipped++
			}
		}
		if done != 4 || skipped != 2 {
			t.Errorf("expected 4 done and 2 skipped, got %d/%d", done, skipped)
		}

		seedID := strconv.FormatInt(seed.SprintID, 10)
		recStats, reqStats := MakeParamRequest(t, http.MethodGet, "/sprints/"+seedID+"/stats", nil,
			map[string]string{"id": seedID})
		ts.HandleSprintStats(recStats, reqStats)
		AssertStatusCode(t, recStats.Code, http.StatusOK)

		var stats SprintStatsResponse
		DecodeJSON(t, recStats, &stats)
		if stats.TotalSessions != 6 || stats.DoneSessions != 4 || stats.SkippedSessions != 2 {
			t.Errorf("unexpected seeded stats: %+v", stats)
		}
		if !almostEqual(stats.CompletionRate, 4.0/6.0) {
			t.Errorf("expected completion rate 4/6, got %v", stats.CompletionRate)
		}

		// Only the seeded sprint remains
		recList, reqList := MakeRequest(t, http.MethodGet, "/sprints", nil)
		ts.HandleListSprints(recList, reqList)
		var sprints []SprintResponse
		DecodeJSON(t, recList, &sprints)
		if len(sprints) != 1 || sprints[0].Title != "Deep Work Week" {
			t.Errorf("expected only the seeded sprint, got %+v", sprints)
		}
	})
}
