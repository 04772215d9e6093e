package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSprintParams holds the fields accepted when creating a sprint
type CreateSprintParams struct {
	Title     string
	GoalText  string
	StartDate time.Time
	EndDate   time.Time
	Status    SprintStatus
}

const sprintColumns = `id, title, goal_text, start_date, end_date, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSprint(row rowScanner) (*Sprint, error) {
	var (
		s                    Sprint
		startDate, endDate   string
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.ID, &s.Title, &s.GoalText, &startDate, &endDate, &s.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if s.StartDate, err = parseDate(startDate); err != nil {
		return nil, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if s.EndDate, err = parseDate(endDate); err != nil {
		return nil, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &s, nil
}

// CreateSprint inserts a new sprint and returns it
func (db *DB) CreateSprint(ctx context.Context, p CreateSprintParams) (*Sprint, error) {
	status := p.Status
	if status == "" {
		status = SprintPlanned
	}

	now := time.Now().UTC()
	query := db.rebind(`
		INSERT INTO sprints (title, goal_text, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := db.QueryRowContext(ctx, query,
		p.Title, p.GoalText, fmtDate(p.StartDate), fmtDate(p.EndDate), string(status),
		fmtTime(now), fmtTime(now),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sprint: %w", err)
	}

	return db.GetSprint(ctx, id)
}

// ListSprints returns all sprints ordered by id ascending
func (db *DB) ListSprints(ctx context.Context) ([]Sprint, error) {
	query := `SELECT ` + sprintColumns + ` FROM sprints ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprints: %w", err)
	}
	defer rows.Close()

	sprints := make([]Sprint, 0)
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		sprints = append(sprints, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sprints: %w", err)
	}
	return sprints, nil
}

// GetSprint returns the sprint with the given id, or ErrNotFound
func (db *DB) GetSprint(ctx context.Context, id int64) (*Sprint, error) {
	query := db.rebind(`SELECT ` + sprintColumns + ` FROM sprints WHERE id = ?`)
	s, err := scanSprint(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sprint %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	return s, nil
}

// UpdateSprintStatus sets a sprint's status and returns the updated sprint.
// Sprint status is freely settable; no transition graph is enforced.
func (db *DB) UpdateSprintStatus(ctx context.Context, id int64, status SprintStatus) (*Sprint, error) {
	query := db.rebind(`UPDATE sprints SET status = ?, updated_at = ? WHERE id = ?`)
	result, err := db.ExecContext(ctx, query, string(status), fmtTime(time.Now().UTC()), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update sprint status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("sprint %d: %w", id, ErrNotFound)
	}

	return db.GetSprint(ctx, id)
}

// DeleteSprint removes a sprint together with its habits and sessions.
// The cascade is an explicit store procedure running in one transaction.
func (db *DB) DeleteSprint(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM sessions WHERE sprint_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete sprint sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM habits WHERE sprint_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete sprint habits: %w", err)
	}

	result, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM sprints WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sprint %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sprint delete: %w", err)
	}
	return nil
}
