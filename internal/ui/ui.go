// Package ui serves the server-rendered HTML surface on top of the same
// store the JSON API uses. Writes redirect back with a flash message
// instead of returning structured errors.
package ui

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"habitarchitect/internal/db"
)

//go:embed templates/*.html
var templateFS embed.FS

var filterOptions = []string{"all", "planned", "done", "skipped"}

// Handler renders and mutates sprints through HTML pages
type Handler struct {
	db     *db.DB
	logger *zap.Logger
	tmpl   *template.Template
}

// NewHandler parses the embedded templates and returns the UI handler
func NewHandler(database *db.DB, logger *zap.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{db: database, logger: logger, tmpl: tmpl}, nil
}

// Routes returns the router for the /ui subtree
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.SprintsPage)
	r.Post("/sprints", h.CreateSprint)
	r.Get("/sprints/{id}", h.SprintDetailPage)
	r.Post("/sprints/{id}/habits", h.CreateHabit)
	r.Post("/sprints/{id}/sessions/plan", h.PlanSession)
	r.Post("/habits/{id}/delete", h.DeleteHabit)
	r.Post("/sessions/{id}/complete", h.CompleteSession)
	r.Post("/sessions/{id}/skip", h.SkipSession)
	return r
}

type sprintView struct {
	ID        int64
	Title     string
	GoalText  string
	StartDate string
	EndDate   string
	Status    string
}

type habitView struct {
	ID                   int64
	Name                 string
	Description          *string
	TargetSessionsPerDay int
}

type sessionView struct {
	ID                 int64
	PlannedStart       string
	PlannedDurationMin int
	HabitName          string
	Status             string
	ActualDurationMin  *int
	Notes              *string
}

type overviewView struct {
	HabitsCount         int
	SessionsCount       int
	DoneSessions        int
	CompletionPercent   string
	TotalPlannedMinutes int
	TotalActualMinutes  *int
}

type listPageData struct {
	Sprints    []sprintView
	FlashMsg   string
	FlashError string
}

type detailPageData struct {
	Sprint         *sprintView
	Habits         []habitView
	Sessions       []sessionView
	Overview       *overviewView
	SessionsFilter string
	FilterOptions  []string
	FlashMsg       string
	FlashError     string
}

func toSprintView(s *db.Sprint) sprintView {
	return sprintView{
		ID:        s.ID,
		Title:     s.Title,
		GoalText:  s.GoalText,
		StartDate: s.StartDate.Format("2006-01-02"),
		EndDate:   s.EndDate.Format("2006-01-02"),
		Status:    string(s.Status),
	}
}

func toOverviewView(o *db.SprintOverview) *overviewView {
	v := &overviewView{
		HabitsCount:         o.HabitsCount,
		SessionsCount:       o.SessionsCount,
		DoneSessions:        o.DoneSessions,
		TotalPlannedMinutes: o.TotalPlannedMinutes,
		TotalActualMinutes:  o.TotalActualMinutes,
	}
	if o.CompletionRate != nil {
		v.CompletionPercent = strconv.FormatFloat(*o.CompletionRate*100, 'f', 1, 64)
	}
	return v
}

func normalizeFilter(value string) string {
	value = strings.ToLower(value)
	for _, f := range filterOptions {
		if value == f {
			return f
		}
	}
	return "all"
}

// redirect issues a 303 with an optional flash parameter appended
func redirect(w http.ResponseWriter, r *http.Request, target, message string, isError bool) {
	if message != "" {
		param := "msg"
		if isError {
			param = "error"
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + param + "=" + url.QueryEscape(message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func sprintDetailURL(id int64) string {
	return "/ui/sprints/" + strconv.FormatInt(id, 10)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
	}
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

// SprintsPage lists all sprints, most recent start date first
func (h *Handler) SprintsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sprints, err := h.db.ListSprints(ctx)
	if err != nil {
		h.logger.Error("Failed to list sprints for UI", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].StartDate.After(sprints[j].StartDate)
	})

	data := listPageData{
		FlashMsg:   r.URL.Query().Get("msg"),
		FlashError: r.URL.Query().Get("error"),
	}
	for i := range sprints {
		data.Sprints = append(data.Sprints, toSprintView(&sprints[i]))
	}

	h.render(w, http.StatusOK, "sprints_list.html", data)
}

// CreateSprint handles the new-sprint form
func (h *Handler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/ui/", "Unable to create sprint", true)
		return
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	goal := strings.TrimSpace(r.PostFormValue("goal_text"))
	startDate, errStart := time.ParseInLocation("2006-01-02", r.PostFormValue("start_date"), time.UTC)
	endDate, errEnd := time.ParseInLocation("2006-01-02", r.PostFormValue("end_date"), time.UTC)
	if title == "" || goal == "" || errStart != nil || errEnd != nil {
		redirect(w, r, "/ui/", "Unable to create sprint", true)
		return
	}

	_, err := h.db.CreateSprint(ctx, db.CreateSprintParams{
		Title:     title,
		GoalText:  goal,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    db.SprintPlanned,
	})
	if err != nil {
		h.logger.Error("Failed to create sprint from UI", zap.Error(err))
		redirect(w, r, "/ui/", "Unable to create sprint", true)
		return
	}

	redirect(w, r, "/ui/", "Sprint created", false)
}

// SprintDetailPage shows one sprint with its habits, sessions and summary
func (h *Handler) SprintDetailPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	data := detailPageData{
		SessionsFilter: normalizeFilter(r.URL.Query().Get("filter")),
		FilterOptions:  filterOptions,
		FlashMsg:       r.URL.Query().Get("msg"),
		FlashError:     r.URL.Query().Get("error"),
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		data.FlashError = "Sprint not found"
		h.render(w, http.StatusNotFound, "sprint_detail.html", data)
		return
	}

	sprint, err := h.db.GetSprint(ctx, id)
	if err != nil {
		if data.FlashError == "" {
			data.FlashError = "Sprint not found"
		}
		h.render(w, http.StatusNotFound, "sprint_detail.html", data)
		return
	}
	sv := toSprintView(sprint)
	data.Sprint = &sv

	habits, err := h.db.ListHabits(ctx, id)
	if err != nil {
		h.logger.Error("Failed to list habits for UI", zap.Int64("sprint_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	habitNames := make(map[int64]string, len(habits))
	for i := range habits {
		habitNames[habits[i].ID] = habits[i].Name
		data.Habits = append(data.Habits, habitView{
			ID:                   habits[i].ID,
			Name:                 habits[i].Name,
			Description:          habits[i].Description,
			TargetSessionsPerDay: habits[i].TargetSessionsPerDay,
		})
	}

	var statusFilter *db.SessionStatus
	if data.SessionsFilter != "all" {
		status := db.SessionStatus(data.SessionsFilter)
		statusFilter = &status
	}
	sessions, err := h.db.ListSessions(ctx, id, statusFilter)
	if err != nil {
		h.logger.Error("Failed to list sessions for UI", zap.Int64("sprint_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	for i := range sessions {
		s := &sessions[i]
		var habitName string
		if s.HabitID != nil {
			habitName = habitNames[*s.HabitID]
		}
		data.Sessions = append(data.Sessions, sessionView{
			ID:                 s.ID,
			PlannedStart:       s.PlannedStart.Format("2006-01-02 15:04"),
			PlannedDurationMin: s.PlannedDurationMin,
			HabitName:          habitName,
			Status:             string(s.Status),
			ActualDurationMin:  s.ActualDurationMin,
			Notes:              s.Notes,
		})
	}

	overview, err := h.db.OverviewForSprint(ctx, id)
	if err != nil {
		h.logger.Error("Failed to compute overview for UI", zap.Int64("sprint_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data.Overview = toOverviewView(overview)

	h.render(w, http.StatusOK, "sprint_detail.html", data)
}

// CreateHabit handles the new-habit form
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sprintID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sprintID < 1 {
		redirect(w, r, "/ui/", "Sprint not found", true)
		return
	}
	if _, err := h.db.GetSprint(ctx, sprintID); err != nil {
		redirect(w, r, "/ui/", "Sprint not found", true)
		return
	}

	if err := r.ParseForm(); err != nil {
		redirect(w, r, sprintDetailURL(sprintID), "Unable to create habit", true)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	target, errTarget := strconv.Atoi(r.PostFormValue("target_sessions_per_day"))
	if name == "" || errTarget != nil || target < 1 {
		redirect(w, r, sprintDetailURL(sprintID), "Unable to create habit", true)
		return
	}

	var description *string
	if d := strings.TrimSpace(r.PostFormValue("description")); d != "" {
		description = &d
	}

	_, err = h.db.CreateHabit(ctx, db.CreateHabitParams{
		SprintID:             sprintID,
		Name:                 name,
		Description:          description,
		TargetSessionsPerDay: target,
	})
	if err != nil {
		h.logger.Error("Failed to create habit from UI", zap.Int64("sprint_id", sprintID), zap.Error(err))
		redirect(w, r, sprintDetailURL(sprintID), "Unable to create habit", true)
		return
	}

	redirect(w, r, sprintDetailURL(sprintID), "Habit created", false)
}

// DeleteHabit removes a habit; its sessions survive without the reference
func (h *Handler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	habitID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || habitID < 1 {
		redirect(w, r, "/ui/", "Habit not found", true)
		return
	}

	habit, err := h.db.GetHabit(ctx, habitID)
	if err != nil {
		redirect(w, r, "/ui/", "Habit not found", true)
		return
	}

	if err := h.db.DeleteHabit(ctx, habitID); err != nil {
		h.logger.Error("Failed to delete habit from UI", zap.Int64("habit_id", habitID), zap.Error(err))
		redirect(w, r, sprintDetailURL(habit.SprintID), "Unable to delete habit", true)
		return
	}

	redirect(w, r, sprintDetailURL(habit.SprintID), "Habit deleted", false)
}

// PlanSession handles the plan-session form. A missing time defaults to 09:00.
func (h *Handler) PlanSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sprintID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sprintID < 1 {
		redirect(w, r, "/ui/", "Unable to plan session", true)
		return
	}
	if _, err := h.db.GetSprint(ctx, sprintID); err != nil {
		redirect(w, r, sprintDetailURL(sprintID), "Unable to plan session", true)
		return
	}

	if err := r.ParseForm(); err != nil {
		redirect(w, r, sprintDetailURL(sprintID), "Unable to plan session", true)
		return
	}

	startDate, errDate := time.ParseInLocation("2006-01-02", r.PostFormValue("planned_start_date"), time.UTC)
	duration, errDuration := strconv.Atoi(r.PostFormValue("planned_duration_min"))
	if errDate != nil || errDuration != nil || duration < 1 {
		redirect(w, r, sprintDetailURL(sprintID), "Unable to plan session", true)
		return
	}

	startTime := 9 * time.Hour
	if v := r.PostFormValue("planned_start_time"); v != "" {
		if t, err := time.Parse("15:04", v); err == nil {
			startTime = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		}
	}
	plannedStart := startDate.Add(startTime)

	var habitID *int64
	if v := r.PostFormValue("habit_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil && id > 0 {
			habit, err := h.db.GetHabit(ctx, id)
			if err != nil || habit.SprintID != sprintID {
				redirect(w, r, sprintDetailURL(sprintID), "Invalid habit selected", true)
				return
			}
			habitID = &id
		}
	}

	var notes *string
	if n := strings.TrimSpace(r.PostFormValue("notes")); n != "" {
		notes = &n
	}

	_, err = h.db.CreateSession(ctx, db.CreateSessionParams{
		SprintID:           sprintID,
		HabitID:            habitID,
		PlannedStart:       plannedStart,
		PlannedDurationMin: duration,
		Status:             db.SessionPlanned,
		Notes:              notes,
	})
	if err != nil {
		h.logger.Error("Failed to plan session from UI", zap.Int64("sprint_id", sprintID), zap.Error(err))
		redirect(w, r, sprintDetailURL(sprintID), "Unable to plan session", true)
		return
	}

	redirect(w, r, sprintDetailURL(sprintID), "Session planned", false)
}

// CompleteSession marks a session done, defaulting the actual fields from the plan
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sessionID < 1 {
		redirect(w, r, "/ui/", "Unable to update session", true)
		return
	}

	session, err := h.db.CompleteSessionDefaults(ctx, sessionID)
	if err != nil {
		redirect(w, r, "/ui/", "Unable to update session", true)
		return
	}

	redirect(w, r, sprintDetailURL(session.SprintID), "Session updated", false)
}

// SkipSession marks a session skipped
func (h *Handler) SkipSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || sessionID < 1 {
		redirect(w, r, "/ui/", "Unable to update session", true)
		return
	}

	session, err := h.db.SkipSession(ctx, sessionID, nil)
	if err != nil {
		redirect(w, r, "/ui/", "Unable to update session", true)
		return
	}

	redirect(w, r, sprintDetailURL(session.SprintID), "Session updated", false)
}
