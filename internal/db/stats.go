package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SprintOverview is the aggregated summary row for one sprint.
// CompletionRate is nil when the sprint has no sessions; TotalActualMinutes
// is nil when no session has an actual duration recorded.
type SprintOverview struct {
	SprintID            int64
	Title               string
	Status              SprintStatus
	HabitsCount         int
	SessionsCount       int
	DoneSessions        int
	CompletionRate      *float64
	TotalPlannedMinutes int
	TotalActualMinutes  *int
}

// SprintStats is the detailed statistics object for one sprint. Unlike the
// overview, CompletionRate is 0 (not null) when the sprint has no sessions.
// AvgDifficulty and AvgMood average only done sessions and are nil when no
// done session has the field populated.
type SprintStats struct {
	SprintID            int64
	TotalSessions       int
	DoneSessions        int
	SkippedSessions     int
	CompletionRate      float64
	TotalPlannedMinutes int
	TotalActualMinutes  int
	AvgDifficulty       *float64
	AvgMood             *float64
}

const overviewQuery = `
	SELECT
		s.id,
		s.title,
		s.status,
		COALESCE(h.habits_count, 0),
		COALESCE(se.sessions_count, 0),
		COALESCE(se.done_sessions, 0),
		COALESCE(se.total_planned_minutes, 0),
		se.total_actual_minutes
	FROM sprints s
	LEFT JOIN (
		SELECT sprint_id, COUNT(id) AS habits_count
		FROM habits
		GROUP BY sprint_id
	) h ON h.sprint_id = s.id
	LEFT JOIN (
		SELECT sprint_id,
			COUNT(id) AS sessions_count,
			SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END) AS done_sessions,
			SUM(planned_duration_min) AS total_planned_minutes,
			SUM(actual_duration_min) AS total_actual_minutes
		FROM sessions
		GROUP BY sprint_id
	) se ON se.sprint_id = s.id`

func scanOverview(row rowScanner) (*SprintOverview, error) {
	var (
		o           SprintOverview
		totalActual sql.NullInt64
	)
	if err := row.Scan(&o.SprintID, &o.Title, &o.Status,
		&o.HabitsCount, &o.SessionsCount, &o.DoneSessions,
		&o.TotalPlannedMinutes, &totalActual); err != nil {
		return nil, err
	}

	o.TotalActualMinutes = intPtr(totalActual)
	if o.SessionsCount > 0 {
		rate := float64(o.DoneSessions) / float64(o.SessionsCount)
		o.CompletionRate = &rate
	}
	return &o, nil
}

// Overview returns one aggregated row per sprint, ordered by sprint id.
// Sprints with no habits or sessions appear with zero counts.
func (db *DB) Overview(ctx context.Context) ([]SprintOverview, error) {
	rows, err := db.QueryContext(ctx, overviewQuery+` ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint overview: %w", err)
	}
	defer rows.Close()

	items := make([]SprintOverview, 0)
	for rows.Next() {
		o, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overview row: %w", err)
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overview rows: %w", err)
	}
	return items, nil
}

// OverviewForSprint returns the aggregated summary for one sprint,
// or ErrNotFound.
func (db *DB) OverviewForSprint(ctx context.Context, sprintID int64) (*SprintOverview, error) {
	query := db.rebind(overviewQuery + ` WHERE s.id = ?`)
	o, err := scanOverview(db.QueryRowContext(ctx, query, sprintID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query sprint overview: %w", err)
	}
	return o, nil
}

// SprintStats computes detailed statistics over one sprint's sessions.
// Returns ErrNotFound when the sprint does not exist.
func (db *DB) SprintStats(ctx context.Context, sprintID int64) (*SprintStats, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		db.rebind(`SELECT EXISTS (SELECT 1 FROM sprints WHERE id = ?)`), sprintID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check sprint existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
	}

	// Averages run only over done sessions; missing difficulty/mood values
	// stay out of the average rather than counting as zero.
	query := db.rebind(`
		SELECT
			COUNT(id),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(planned_duration_min), 0),
			COALESCE(SUM(actual_duration_min), 0),
			AVG(CASE WHEN status = 'done' THEN difficulty END),
			AVG(CASE WHEN status = 'done' THEN mood END)
		FROM sessions
		WHERE sprint_id = ?`)

	var (
		st                     SprintStats
		avgDifficulty, avgMood sql.NullFloat64
	)
	err = db.QueryRowContext(ctx, query, sprintID).Scan(
		&st.TotalSessions, &st.DoneSessions, &st.SkippedSessions,
		&st.TotalPlannedMinutes, &st.TotalActualMinutes,
		&avgDifficulty, &avgMood,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint stats: %w", err)
	}

	st.SprintID = sprintID
	if avgDifficulty.Valid {
		st.AvgDifficulty = &avgDifficulty.Float64
	}
	if avgMood.Valid {
		st.AvgMood = &avgMood.Float64
	}
	if st.TotalSessions > 0 {
		st.CompletionRate = float64(st.DoneSessions) / float64(st.TotalSessions)
	}
	return &st, nil
}
