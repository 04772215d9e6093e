package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSessionParams holds the fields accepted when scheduling a session
type CreateSessionParams struct {
	SprintID           int64
	HabitID            *int64
	PlannedStart       time.Time
	PlannedDurationMin int
	ActualStart        *time.Time
	ActualDurationMin  *int
	Status             SessionStatus
	Notes              *string
	Difficulty         *int
	Mood               *int
}

// CompleteSessionParams holds the fields recorded when completing a session
type CompleteSessionParams struct {
	ActualStart       time.Time
	ActualDurationMin int
	Notes             *string
	Difficulty        *int
	Mood              *int
}

const sessionColumns = `id, sprint_id, habit_id, planned_start, planned_duration_min,
	actual_start, actual_duration_min, status, notes, difficulty, mood, created_at`

func scanSession(row rowScanner) (*Session, error) {
	var (
		s                 Session
		habitID           sql.NullInt64
		plannedStart      string
		actualStart       sql.NullString
		actualDurationMin sql.NullInt64
		notes             sql.NullString
		difficulty, mood  sql.NullInt64
		createdAt         string
	)
	if err := row.Scan(&s.ID, &s.SprintID, &habitID, &plannedStart, &s.PlannedDurationMin,
		&actualStart, &actualDurationMin, &s.Status, &notes, &difficulty, &mood, &createdAt); err != nil {
		return nil, err
	}

	s.HabitID = int64Ptr(habitID)
	s.ActualDurationMin = intPtr(actualDurationMin)
	s.Notes = strPtr(notes)
	s.Difficulty = intPtr(difficulty)
	s.Mood = intPtr(mood)

	var err error
	if s.PlannedStart, err = parseTime(plannedStart); err != nil {
		return nil, fmt.Errorf("failed to parse planned_start: %w", err)
	}
	if actualStart.Valid {
		t, err := parseTime(actualStart.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse actual_start: %w", err)
		}
		s.ActualStart = &t
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return &s, nil
}

// CreateSession inserts a new session and returns it
func (db *DB) CreateSession(ctx context.Context, p CreateSessionParams) (*Session, error) {
	status := p.Status
	if status == "" {
		status = SessionPlanned
	}

	now := time.Now().UTC()
	query := db.rebind(`
		INSERT INTO sessions (sprint_id, habit_id, planned_start, planned_duration_min,
			actual_start, actual_duration_min, status, notes, difficulty, mood, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := db.QueryRowContext(ctx, query,
		p.SprintID, nullInt64(p.HabitID), fmtTime(p.PlannedStart), p.PlannedDurationMin,
		nullTimeStr(p.ActualStart), nullInt(p.ActualDurationMin), string(status),
		nullStr(p.Notes), nullInt(p.Difficulty), nullInt(p.Mood), fmtTime(now),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return db.GetSession(ctx, id)
}

// GetSession returns the session with the given id, or ErrNotFound
func (db *DB) GetSession(ctx context.Context, id int64) (*Session, error) {
	query := db.rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)
	s, err := scanSession(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListSessions returns a sprint's sessions ordered by planned start,
// optionally filtered by status.
func (db *DB) ListSessions(ctx context.Context, sprintID int64, status *SessionStatus) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE sprint_id = ?`
	args := []any{sprintID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY planned_start`

	rows, err := db.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// CompleteSession marks a session done and records the actual fields.
func (db *DB) CompleteSession(ctx context.Context, id int64, p CompleteSessionParams) (*Session, error) {
	query := db.rebind(`
		UPDATE sessions
		SET status = ?, actual_start = ?, actual_duration_min = ?, notes = ?, difficulty = ?, mood = ?
		WHERE id = ?`)

	result, err := db.ExecContext(ctx, query,
		string(SessionDone), fmtTime(p.ActualStart), p.ActualDurationMin,
		nullStr(p.Notes), nullInt(p.Difficulty), nullInt(p.Mood), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	if err := requireAffected(result, "session", id); err != nil {
		return nil, err
	}

	return db.GetSession(ctx, id)
}

// CompleteSessionDefaults marks a session done, defaulting actual_start to
// now and actual_duration_min to the planned duration when unset. Used by
// the simplified HTML completion path.
func (db *DB) CompleteSessionDefaults(ctx context.Context, id int64) (*Session, error) {
	query := db.rebind(`
		UPDATE sessions
		SET status = ?,
			actual_start = COALESCE(actual_start, ?),
			actual_duration_min = COALESCE(actual_duration_min, planned_duration_min)
		WHERE id = ?`)

	result, err := db.ExecContext(ctx, query, string(SessionDone), fmtTime(time.Now().UTC()), id)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	if err := requireAffected(result, "session", id); err != nil {
		return nil, err
	}

	return db.GetSession(ctx, id)
}

// SkipSession marks a session skipped, optionally replacing its notes.
func (db *DB) SkipSession(ctx context.Context, id int64, notes *string) (*Session, error) {
	var (
		result sql.Result
		err    error
	)
	if notes != nil {
		query := db.rebind(`UPDATE sessions SET status = ?, notes = ? WHERE id = ?`)
		result, err = db.ExecContext(ctx, query, string(SessionSkipped), *notes, id)
	} else {
		query := db.rebind(`UPDATE sessions SET status = ? WHERE id = ?`)
		result, err = db.ExecContext(ctx, query, string(SessionSkipped), id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to skip session: %w", err)
	}
	if err := requireAffected(result, "session", id); err != nil {
		return nil, err
	}

	return db.GetSession(ctx, id)
}

func requireAffected(result sql.Result, entity string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}
