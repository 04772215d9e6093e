package db

import (
	"database/sql"
	"time"
)

// SprintStatus is the lifecycle state of a sprint. Any status may be set to
// any other; there is no enforced transition graph.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
	SprintCancelled SprintStatus = "cancelled"
)

// Valid reports whether s is a known sprint status.
func (s SprintStatus) Valid() bool {
	switch s {
	case SprintPlanned, SprintActive, SprintCompleted, SprintCancelled:
		return true
	}
	return false
}

// SessionStatus is the execution state of a session. planned -> done and
// planned -> skipped are the exposed transitions; both are terminal.
type SessionStatus string

const (
	SessionPlanned SessionStatus = "planned"
	SessionDone    SessionStatus = "done"
	SessionSkipped SessionStatus = "skipped"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPlanned, SessionDone, SessionSkipped:
		return true
	}
	return false
}

// Sprint is a bounded-date study goal container
type Sprint struct {
	ID        int64
	Title     string
	GoalText  string
	StartDate time.Time
	EndDate   time.Time
	Status    SprintStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Habit is a recurring practice tracked within a sprint
type Habit struct {
	ID                   int64
	SprintID             int64
	Name                 string
	Description          *string
	TargetSessionsPerDay int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Session is a single planned/executed focus event, optionally linked to a habit
type Session struct {
	ID                 int64
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
	CreatedAt          time.Time
}

// Fixed-width layout so stored text sorts chronologically.
const (
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout = "2006-01-02"
)

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	i := ni.Int64
	return &i
}

func nullTimeStr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}
