package api

import (
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/models"
)

// schedulesHandler routes /api/schedules, /api/schedules/weekly-load and
// /api/schedules/{id}.
func (s *Server) schedulesHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/schedules")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			s.listSchedulesHandler(w, r)
		case http.MethodPost:
			s.createScheduleHandler(w, r)
		default:
			methodNotAllowed(w, "GET, POST")
		}
		return
	}
	if path == "weekly-load" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		s.weeklyLoadHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateScheduleHandler(w, r, path)
	case http.MethodDelete:
		s.deleteScheduleHandler(w, r, path)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) listSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.st.ListScheduleBlocks(caller(r).UserID)
	if err != nil {
		slog.Error("Server.listSchedulesHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch schedules"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(blocks))
}

func (s *Server) createScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	now := s.now().UTC()
	block := models.ScheduleBlock{
		ID:        uuid.NewString(),
		UserID:    caller(r).UserID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Type:      req.Type,
		Title:     req.Title,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.AddScheduleBlock(block); err != nil {
		slog.Error("Server.createScheduleHandler: insert failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create schedule"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(block))
}

// lookupOwnSchedule fetches a schedule block and enforces ownership.
func (s *Server) lookupOwnSchedule(w http.ResponseWriter, r *http.Request, id string) *models.ScheduleBlock {
	block, err := s.st.GetScheduleBlock(id)
	if err != nil {
		slog.Error("Server.lookupOwnSchedule: lookup failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch schedule"))
		return nil
	}
	if block == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Schedule not found"))
		return nil
	}
	if block.UserID != caller(r).UserID {
		writeJSONResponse(w, http.StatusForbidden, models.Error(models.ErrForbidden.Error()))
		return nil
	}
	return block
}

func (s *Server) updateScheduleHandler(w http.ResponseWriter, r *http.Request, id string) {
	var req models.ScheduleUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	block := s.lookupOwnSchedule(w, r, id)
	if block == nil {
		return
	}
	req.Apply(block)
	block.UpdatedAt = s.now().UTC()
	if err := s.st.UpdateScheduleBlock(*block); err != nil {
		slog.Error("Server.updateScheduleHandler: update failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(block))
}

func (s *Server) deleteScheduleHandler(w http.ResponseWriter, r *http.Request, id string) {
	if s.lookupOwnSchedule(w, r, id) == nil {
		return
	}
	if err := s.st.DeleteScheduleBlock(id); err != nil {
		slog.Error("Server.deleteScheduleHandler: delete failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Schedule deleted", nil))
}

func (s *Server) weeklyLoadHandler(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.st.ListScheduleBlocks(caller(r).UserID)
	if err != nil {
		slog.Error("Server.weeklyLoadHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch schedules"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(computeWeeklyLoad(blocks)))
}

// computeWeeklyLoad sums block hours across the recurring week. Only
// academic and training blocks count; blocks with unparseable or inverted
// times contribute zero hours.
func computeWeeklyLoad(blocks []models.ScheduleBlock) models.WeeklyLoad {
	var load models.WeeklyLoad
	for _, b := range blocks {
		switch b.Type {
		case "academic":
			load.AcademicHours += blockHours(b)
		case "training":
			load.TrainingHours += blockHours(b)
		}
	}
	load.AcademicHours = roundTo(load.AcademicHours, 1)
	load.TrainingHours = roundTo(load.TrainingHours, 1)
	load.TotalHours = roundTo(load.AcademicHours+load.TrainingHours, 1)
	switch {
	case load.TotalHours > 40:
		load.LoadLevel = "high"
	case load.TotalHours > 30:
		load.LoadLevel = "moderate"
	default:
		load.LoadLevel = "low"
	}
	if load.TrainingHours > 0 {
		load.BalanceRatio = roundTo(load.AcademicHours/load.TrainingHours, 2)
	}
	return load
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

func blockHours(b models.ScheduleBlock) float64 {
	start, err := time.Parse("15:04", b.StartTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse("15:04", b.EndTime)
	if err != nil {
		return 0
	}
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return d.Hours()
}
