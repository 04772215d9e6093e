package db

import (
	"context"
	"fmt"
	"time"
)

// DemoSeedSession summarizes one seeded session
type DemoSeedSession struct {
	ID              int64         `json:"id"`
	Status          SessionStatus `json:"status"`
	PlannedDuration int           `json:"planned_duration"`
}

// DemoSeedResult summarizes the data created by SeedDemo
type DemoSeedResult struct {
	SprintID int64             `json:"sprint_id"`
	Habits   []string          `json:"habits"`
	Sessions []DemoSeedSession `json:"sessions"`
}

// SeedDemo wipes all rows and seeds one curated sprint with habits and
// sessions. Everything runs in a single transaction.
func (db *DB) SeedDemo(ctx context.Context) (*DemoSeedResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sessions", "habits", "sprints"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	now := time.Now().UTC()
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 0, 6)

	var sprintID int64
	err = tx.QueryRowContext(ctx, db.rebind(`
		INSERT INTO sprints (title, goal_text, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		"Deep Work Week", "Solidify DS & Algorithms fundamentals",
		fmtDate(startDate), fmtDate(endDate), string(SprintActive),
		fmtTime(now), fmtTime(now),
	).Scan(&sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed sprint: %w", err)
	}

	habits := []struct {
		name, description string
		target            int
	}{
		{"Morning math drills", "80 minutes focused problem solving", 2},
		{"Evening recap notes", "Summaries of key takeaways", 1},
	}

	result := &DemoSeedResult{SprintID: sprintID}
	habitIDs := make([]int64, 0, len(habits))
	for _, h := range habits {
		var habitID int64
		err = tx.QueryRowContext(ctx, db.rebind(`
			INSERT INTO habits (sprint_id, name, description, target_sessions_per_day, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`),
			sprintID, h.name, h.description, h.target, fmtTime(now), fmtTime(now),
		).Scan(&habitID)
		if err != nil {
			return nil, fmt.Errorf("failed to seed habit: %w", err)
		}
		habitIDs = append(habitIDs, habitID)
		result.Habits = append(result.Habits, h.name)
	}

	baseStart := startDate.Add(9 * time.Hour)
	for offset := 0; offset < 6; offset++ {
		plannedStart := baseStart.AddDate(0, 0, offset)
		plannedDuration := 45
		difficulty := 3
		if offset%2 == 0 {
			plannedDuration = 60
			difficulty = 4
		}
		mood := 3 + offset%2

		status := SessionSkipped
		notes := "Needed rest"
		var actualStart, actualDuration any
		if offset%3 != 0 {
			status = SessionDone
			notes = "Felt productive"
			actualStart = fmtTime(plannedStart.Add(time.Duration(offset%3) * time.Hour))
			actualDuration = 55
		}

		var sessionID int64
		err = tx.QueryRowContext(ctx, db.rebind(`
			INSERT INTO sessions (sprint_id, habit_id, planned_start, planned_duration_min,
				actual_start, actual_duration_min, status, notes, difficulty, mood, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			sprintID, habitIDs[0], fmtTime(plannedStart), plannedDuration,
			actualStart, actualDuration, string(status), notes, difficulty, mood, fmtTime(now),
		).Scan(&sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to seed session: %w", err)
		}

		result.Sessions = append(result.Sessions, DemoSeedSession{
			ID:              sessionID,
			Status:          status,
			PlannedDuration: plannedDuration,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit demo seed: %w", err)
	}
	return result, nil
}
