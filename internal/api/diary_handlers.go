package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/timeutil"
)

// defaultDiaryListLimit caps GET /api/diary/entries when no limit is given.
const defaultDiaryListLimit = 30

// diaryHandler routes /api/diary/entries, /api/diary/entries/{date} and
// /api/diary/weekly-summary.
func (s *Server) diaryHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/diary/")

	switch {
	case path == "entries":
		switch r.Method {
		case http.MethodGet:
			s.listDiaryEntriesHandler(w, r)
		case http.MethodPost:
			s.saveDiaryEntryHandler(w, r)
		default:
			methodNotAllowed(w, "GET, POST")
		}
	case strings.HasPrefix(path, "entries/"):
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		s.getDiaryEntryHandler(w, r, strings.TrimPrefix(path, "entries/"))
	case path == "weekly-summary":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		s.weeklySummaryHandler(w, r)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
	}
}

func (s *Server) listDiaryEntriesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultDiaryListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.st.ListDiaryEntries(caller(r).UserID, limit)
	if err != nil {
		slog.Error("Server.listDiaryEntriesHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch diary entries"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}

// saveDiaryEntryHandler upserts the entry for the given date: one entry per
// user per day, last write wins.
func (s *Server) saveDiaryEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DiaryEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	now := s.now().UTC()
	entry := models.DiaryEntry{
		ID:         uuid.NewString(),
		UserID:     caller(r).UserID,
		Date:       req.Date,
		Mood:       req.Mood,
		Energy:     req.Energy,
		Stress:     req.Stress,
		Notes:      req.Notes,
		Highlights: req.Highlights,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.st.SaveDiaryEntry(entry); err != nil {
		slog.Error("Server.saveDiaryEntryHandler: save failed", "error", err, "date", req.Date)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save diary entry"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(entry))
}

func (s *Server) getDiaryEntryHandler(w http.ResponseWriter, r *http.Request, date string) {
	if _, err := timeutil.ParseDate(date); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrInvalidDate.Error()))
		return
	}
	entry, err := s.st.GetDiaryEntryByDate(caller(r).UserID, date)
	if err != nil {
		slog.Error("Server.getDiaryEntryHandler: lookup failed", "error", err, "date", date)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch diary entry"))
		return
	}
	if entry == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No diary entry for that date"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entry))
}

func (s *Server) weeklySummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.diarySummary(caller(r).UserID, 7)
	if err != nil {
		slog.Error("Server.weeklySummaryHandler: summary failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute weekly summary"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(summary))
}

// diarySummary averages mood, energy and stress over the last `days` days.
func (s *Server) diarySummary(userID string, days int) (models.DiarySummary, error) {
	since := s.now().UTC().AddDate(0, 0, -days).Format(timeutil.DateLayout)
	entries, err := s.st.ListDiaryEntriesSince(userID, since)
	if err != nil {
		return models.DiarySummary{}, err
	}
	return summarizeDiary(entries), nil
}

func summarizeDiary(entries []models.DiaryEntry) models.DiarySummary {
	summary := models.DiarySummary{EntriesCount: len(entries)}
	if len(entries) == 0 {
		return summary
	}
	var mood, energy, stress int
	for _, e := range entries {
		mood += e.Mood
		energy += e.Energy
		stress += e.Stress
	}
	n := float64(len(entries))
	summary.AvgMood = float64(mood) / n
	summary.AvgEnergy = float64(energy) / n
	summary.AvgStress = float64(stress) / n
	switch {
	case summary.AvgMood > 3.5:
		summary.Trend = "positiva"
	case summary.AvgMood > 2.5:
		summary.Trend = "estable"
	default:
		summary.Trend = "requiere atención"
	}
	return summary
}
