package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedSprint(t *testing.T, database *DB, title string, status SprintStatus) *Sprint {
	t.Helper()

	sprint, err := database.CreateSprint(context.Background(), CreateSprintParams{
		Title:     title,
		GoalText:  "goal",
		StartDate: time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC),
		Status:    status,
	})
	if err != nil {
		t.Fatalf("Failed to create sprint: %v", err)
	}
	return sprint
}

func seedHabit(t *testing.T, database *DB, sprintID int64, name string) *Habit {
	t.Helper()

	habit, err := database.CreateHabit(context.Background(), CreateHabitParams{
		SprintID:             sprintID,
		Name:                 name,
		TargetSessionsPerDay: 1,
	})
	if err != nil {
		t.Fatalf("Failed to create habit: %v", err)
	}
	return habit
}

func seedSession(t *testing.T, database *DB, sprintID int64, habitID *int64, start time.Time, duration int) *Session {
	t.Helper()

	session, err := database.CreateSession(context.Background(), CreateSessionParams{
		SprintID:           sprintID,
		HabitID:            habitID,
		PlannedStart:       start,
		PlannedDurationMin: duration,
		Status:             SessionPlanned,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return session
}

func TestSprintCRUD(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	created := seedSprint(t, database, "Deep Work Week", SprintPlanned)
	if created.ID < 1 {
		t.Fatalf("expected positive id, got %d", created.ID)
	}
	if created.Status != SprintPlanned {
		t.Errorf("expected planned status, got %s", created.Status)
	}

	fetched, err := database.GetSprint(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSprint failed: %v", err)
	}
	if fetched.Title != "Deep Work Week" {
		t.Errorf("unexpected title %q", fetched.Title)
	}
	if !fetched.StartDate.Equal(created.StartDate) {
		t.Errorf("start date round-tripped wrong: %v vs %v", fetched.StartDate, created.StartDate)
	}

	updated, err := database.UpdateSprintStatus(ctx, created.ID, SprintActive)
	if err != nil {
		t.Fatalf("UpdateSprintStatus failed: %v", err)
	}
	if updated.Status != SprintActive {
		t.Errorf("expected active status, got %s", updated.Status)
	}

	sprints, err := database.ListSprints(ctx)
	if err != nil {
		t.Fatalf("ListSprints failed: %v", err)
	}
	if len(sprints) != 1 {
		t.Errorf("expected 1 sprint, got %d", len(sprints))
	}
}

func TestGetSprint_NotFound(t *testing.T) {
	database := newTestDB(t)

	_, err := database.GetSprint(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSprintStatus_NotFound(t *testing.T) {
	database := newTestDB(t)

	_, err := database.UpdateSprintStatus(context.Background(), 42, SprintActive)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSprint_Cascades(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Doomed", SprintActive)
	habit := seedHabit(t, database, sprint.ID, "Habit")
	seedSession(t, database, sprint.ID, &habit.ID, time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC), 45)

	// Unrelated sprint must be untouched
	other := seedSprint(t, database, "Survivor", SprintActive)
	seedHabit(t, database, other.ID, "Other habit")

	if err := database.DeleteSprint(ctx, sprint.ID); err != nil {
		t.Fatalf("DeleteSprint failed: %v", err)
	}

	if _, err := database.GetSprint(ctx, sprint.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected sprint gone, got %v", err)
	}

	var habitCount, sessionCount int
	if err := database.QueryRowContext(ctx, "SELECT COUNT(*) FROM habits").Scan(&habitCount); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if err := database.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&sessionCount); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if habitCount != 1 || sessionCount != 0 {
		t.Errorf("expected only the survivor's habit left, got habits=%d sessions=%d", habitCount, sessionCount)
	}
}

func TestDeleteSprint_NotFound(t *testing.T) {
	database := newTestDB(t)

	err := database.DeleteSprint(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteHabit_ClearsSessions(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Sprint", SprintActive)
	habit := seedHabit(t, database, sprint.ID, "Habit")
	session := seedSession(t, database, sprint.ID, &habit.ID, time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC), 45)

	if err := database.DeleteHabit(ctx, habit.ID); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}

	kept, err := database.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if kept.HabitID != nil {
		t.Errorf("expected habit reference cleared, got %v", *kept.HabitID)
	}

	if _, err := database.GetHabit(ctx, habit.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected habit gone, got %v", err)
	}
}

func TestListHabits_SortedByName(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Sprint", SprintActive)
	seedHabit(t, database, sprint.ID, "Zeta")
	seedHabit(t, database, sprint.ID, "Alpha")

	habits, err := database.ListHabits(ctx, sprint.ID)
	if err != nil {
		t.Fatalf("ListHabits failed: %v", err)
	}
	if len(habits) != 2 || habits[0].Name != "Alpha" || habits[1].Name != "Zeta" {
		t.Errorf("unexpected habit order: %+v", habits)
	}
}

func TestCompleteSession(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Sprint", SprintActive)
	session := seedSession(t, database, sprint.ID, nil, time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC), 50)

	difficulty := 4
	notes := "good block"
	completed, err := database.CompleteSession(ctx, session.ID, CompleteSessionParams{
		ActualStart:       time.Date(2026, 8, 18, 9, 10, 0, 0, time.UTC),
		ActualDurationMin: 45,
		Notes:             &notes,
		Difficulty:        &difficulty,
	})
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if completed.Status != SessionDone {
		t.Errorf("expected done, got %s", completed.Status)
	}
	if completed.ActualDurationMin == nil || *completed.ActualDurationMin != 45 {
		t.Errorf("expected actual duration 45, got %v", completed.ActualDurationMin)
	}
	if completed.Mood != nil {
		t.Errorf("expected mood unset, got %v", *completed.Mood)
	}
}

func TestCompleteSessionDefaults(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Sprint", SprintActive)
	session := seedSession(t, database, sprint.ID, nil, time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC), 50)

	completed, err := database.CompleteSessionDefaults(ctx, session.ID)
	if err != nil {
		t.Fatalf("CompleteSessionDefaults failed: %v", err)
	}
	if completed.Status != SessionDone {
		t.Errorf("expected done, got %s", completed.Status)
	}
	if completed.ActualDurationMin == nil || *completed.ActualDurationMin != 50 {
		t.Errorf("expected planned duration carried over, got %v", completed.ActualDurationMin)
	}
	if completed.ActualStart == nil {
		t.Error("expected actual start defaulted")
	}
}

func TestSkipSession(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Sprint", SprintActive)
	session := seedSession(t, database, sprint.ID, nil, time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC), 50)

	skipped, err := database.SkipSession(ctx, session.ID, nil)
	if err != nil {
		t.Fatalf("SkipSession failed: %v", err)
	}
	if skipped.Status != SessionSkipped {
		t.Errorf("expected skipped, got %s", skipped.Status)
	}
	if skipped.Notes != nil {
		t.Errorf("expected notes untouched, got %v", *skipped.Notes)
	}

	notes := "sick day"
	skipped, err = database.SkipSession(ctx, session.ID, &notes)
	if err != nil {
		t.Fatalf("SkipSession with notes failed: %v", err)
	}
	if skipped.Notes == nil || *skipped.Notes != "sick day" {
		t.Errorf("expected notes recorded, got %v", skipped.Notes)
	}
}

func TestListSessions_FilterAndOrder(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sprint := seedSprint(t, database, "Sprint", SprintActive)
	base := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	late := seedSession(t, database, sprint.ID, nil, base.Add(2*time.Hour), 30)
	seedSession(t, database, sprint.ID, nil, base, 50)

	if _, err := database.SkipSession(ctx, late.ID, nil); err != nil {
		t.Fatalf("SkipSession failed: %v", err)
	}

	all, err := database.ListSessions(ctx, sprint.ID, nil)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}
	if !all[0].PlannedStart.Before(all[1].PlannedStart) {
		t.Error("expected chronological order by planned start")
	}

	skipped := SessionSkipped
	filtered, err := database.ListSessions(ctx, sprint.ID, &skipped)
	if err != nil {
		t.Fatalf("ListSessions with filter failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != late.ID {
		t.Errorf("expected only the skipped session, got %+v", filtered)
	}
}
