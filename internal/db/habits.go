package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateHabitParams holds the fields accepted when creating a habit
type CreateHabitParams struct {
	SprintID             int64
	Name                 string
	Description          *string
	TargetSessionsPerDay int
}

const habitColumns = `id, sprint_id, name, description, target_sessions_per_day, created_at, updated_at`

func scanHabit(row rowScanner) (*Habit, error) {
	var (
		h                    Habit
		description          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&h.ID, &h.SprintID, &h.Name, &description, &h.TargetSessionsPerDay, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	h.Description = strPtr(description)

	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &h, nil
}

// CreateHabit inserts a new habit and returns it
func (db *DB) CreateHabit(ctx context.Context, p CreateHabitParams) (*Habit, error) {
	now := time.Now().UTC()
	query := db.rebind(`
		INSERT INTO habits (sprint_id, name, description, target_sessions_per_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := db.QueryRowContext(ctx, query,
		p.SprintID, p.Name, nullStr(p.Description), p.TargetSessionsPerDay,
		fmtTime(now), fmtTime(now),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert habit: %w", err)
	}

	return db.GetHabit(ctx, id)
}

// GetHabit returns the habit with the given id, or ErrNotFound
func (db *DB) GetHabit(ctx context.Context, id int64) (*Habit, error) {
	query := db.rebind(`SELECT ` + habitColumns + ` FROM habits WHERE id = ?`)
	h, err := scanHabit(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("habit %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

// ListHabits returns all habits of a sprint ordered by name
func (db *DB) ListHabits(ctx context.Context, sprintID int64) ([]Habit, error) {
	query := db.rebind(`SELECT ` + habitColumns + ` FROM habits WHERE sprint_id = ? ORDER BY name`)
	rows, err := db.QueryContext(ctx, query, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	habits := make([]Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

// DeleteHabit removes a habit. Sessions referencing it survive with their
// habit reference cleared; both statements run in one transaction.
func (db *DB) DeleteHabit(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(`UPDATE sessions SET habit_id = NULL WHERE habit_id = ?`), id); err != nil {
		return fmt.Errorf("failed to clear habit references: %w", err)
	}

	result, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM habits WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("habit %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit habit delete: %w", err)
	}
	return nil
}
