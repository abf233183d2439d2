package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/timeutil"
)

// habitStatsWindowDays is the window habit completion rates are computed
// over.
const habitStatsWindowDays = 30

// habitsHandler routes /api/habits, /api/habits/stats, /api/habits/{id} and
// /api/habits/{id}/track.
func (s *Server) habitsHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/habits")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			s.listHabitsHandler(w, r)
		case http.MethodPost:
			s.createHabitHandler(w, r)
		default:
			methodNotAllowed(w, "GET, POST")
		}
		return
	}
	if path == "stats" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		s.habitStatsHandler(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, "PUT")
			return
		}
		s.updateHabitHandler(w, r, id)
	case rest == "track":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		s.trackHabitHandler(w, r, id)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
	}
}

func (s *Server) listHabitsHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	habits, err := s.st.ListHabits(caller(r).UserID, activeOnly)
	if err != nil {
		slog.Error("Server.listHabitsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch habits"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(habits))
}

func (s *Server) createHabitHandler(w http.ResponseWriter, r *http.Request) {
	var req models.HabitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	frequency := req.Frequency
	if frequency == "" {
		frequency = "daily"
	}
	now := s.now().UTC()
	habit := models.Habit{
		ID:          uuid.NewString(),
		UserID:      caller(r).UserID,
		Title:       req.Title,
		Description: req.Description,
		Frequency:   frequency,
		Category:    req.Category,
		TargetDays:  req.TargetDays,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.st.AddHabit(habit); err != nil {
		slog.Error("Server.createHabitHandler: insert failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create habit"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(habit))
}

// lookupOwnHabit fetches a habit and enforces ownership.
func (s *Server) lookupOwnHabit(w http.ResponseWriter, r *http.Request, id string) *models.Habit {
	habit, err := s.st.GetHabit(id)
	if err != nil {
		slog.Error("Server.lookupOwnHabit: lookup failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch habit"))
		return nil
	}
	if habit == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Habit not found"))
		return nil
	}
	if habit.UserID != caller(r).UserID {
		writeJSONResponse(w, http.StatusForbidden, models.Error(models.ErrForbidden.Error()))
		return nil
	}
	return habit
}

func (s *Server) updateHabitHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req models.HabitUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	habit := s.lookupOwnHabit(w, r, id)
	if habit == nil {
		return
	}
	req.Apply(habit)
	habit.UpdatedAt = s.now().UTC()
	if err := s.st.UpdateHabit(*habit); err != nil {
		slog.Error("Server.updateHabitHandler: update failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update habit"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(habit))
}

// trackHabitHandler upserts the completion record for the given date.
func (s *Server) trackHabitHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req models.HabitTrackingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	habit := s.lookupOwnHabit(w, r, id)
	if habit == nil {
		return
	}
	tracking := models.HabitTracking{
		ID:        uuid.NewString(),
		HabitID:   habit.ID,
		UserID:    caller(r).UserID,
		Date:      req.Date,
		Completed: req.Completed,
		Notes:     req.Notes,
		CreatedAt: s.now().UTC(),
	}
	if err := s.st.SaveHabitTracking(tracking); err != nil {
		slog.Error("Server.trackHabitHandler: save failed", "error", err, "habit_id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to track habit"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(tracking))
}

func (s *Server) habitStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.habitStats(caller(r).UserID, habitStatsWindowDays)
	if err != nil {
		slog.Error("Server.habitStatsHandler: stats failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute habit stats"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

// habitStats computes the completion rate of every active habit over the
// last `days` days.
func (s *Server) habitStats(userID string, days int) ([]models.HabitStat, error) {
	habits, err := s.st.ListHabits(userID, true)
	if err != nil {
		return nil, err
	}
	since := s.now().UTC().AddDate(0, 0, -days).Format(timeutil.DateLayout)
	tracking, err := s.st.ListHabitTrackingSince(userID, since)
	if err != nil {
		return nil, err
	}

	completed := make(map[string]int)
	for _, t := range tracking {
		if t.Completed {
			completed[t.HabitID]++
		}
	}

	stats := make([]models.HabitStat, 0, len(habits))
	for _, h := range habits {
		count := completed[h.ID]
		stats = append(stats, models.HabitStat{
			HabitID:        h.ID,
			Title:          h.Title,
			CompletionRate: float64(count) / float64(days) * 100,
			CompletedCount: count,
			TotalDays:      days,
		})
	}
	return stats, nil
}
