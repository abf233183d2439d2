package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/models"
)

// defaultHistoryLimit caps GET /api/sessions/history when no limit is given.
const defaultHistoryLimit = 20

// sessionCatalog is the static library of guided mental-training sessions.
var sessionCatalog = []models.SessionType{
	{ID: "focus", Title: "Enfoque y Concentración", Duration: 15, Description: "Mejora tu concentración para entrenamientos y competencias"},
	{ID: "calm", Title: "Calma y Relajación", Duration: 10, Description: "Reduce el estrés y encuentra equilibrio"},
	{ID: "recovery", Title: "Recuperación Mental", Duration: 12, Description: "Optimiza tu descanso y regeneración"},
	{ID: "pre_competition", Title: "Pre-Competencia", Duration: 8, Description: "Prepárate mentalmente antes de competir"},
	{ID: "visualization", Title: "Visualización", Duration: 10, Description: "Visualiza tu éxito y rendimiento óptimo"},
}

// sessionsHandler routes /api/sessions/types, /api/sessions/complete and
// /api/sessions/history.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimPrefix(r.URL.Path, "/api/sessions/") {
	case "types":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(sessionCatalog))
	case "complete":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		s.completeSessionHandler(w, r)
	case "history":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		s.sessionHistoryHandler(w, r)
	default:
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
	}
}

func (s *Server) completeSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SessionCompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	completion := models.SessionCompletion{
		ID:          uuid.NewString(),
		UserID:      caller(r).UserID,
		SessionType: req.SessionType,
		Duration:    req.Duration,
		Rating:      req.Rating,
		Notes:       req.Notes,
		CompletedAt: s.now().UTC(),
	}
	if err := s.st.AddSessionCompletion(completion); err != nil {
		slog.Error("Server.completeSessionHandler: insert failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record session"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Session completed", completion))
}

func (s *Server) sessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	sessions, err := s.st.ListSessionCompletions(caller(r).UserID, limit)
	if err != nil {
		slog.Error("Server.sessionHistoryHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch session history"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}
