package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/agent"
	"github.com/MindAthlete/backend/internal/models"
)

// advisorWindowDays is the habit window feeding the advisor prompt.
const advisorWindowDays = 30

// advisorHandler handles POST /api/ai/recommendations: it aggregates the
// athlete's weekly state and asks the advisor agent for a personalized
// recommendation.
func (s *Server) advisorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.AdvisorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := caller(r).UserID

	profile, err := s.st.GetUserProfile(userID)
	if err != nil {
		slog.Error("Server.advisorHandler: profile lookup failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch profile"))
		return
	}
	blocks, err := s.st.ListScheduleBlocks(userID)
	if err != nil {
		slog.Error("Server.advisorHandler: schedule fetch failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch schedules"))
		return
	}
	load := computeWeeklyLoad(blocks)
	diary, err := s.diarySummary(userID, 7)
	if err != nil {
		slog.Error("Server.advisorHandler: diary summary failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute diary summary"))
		return
	}
	if diary.EntriesCount == 0 {
		// Without check-ins the prompt assumes a neutral week, not a bad one.
		diary.AvgMood, diary.AvgEnergy, diary.AvgStress = 3, 3, 3
		diary.Trend = "estable"
	}
	stats, err := s.habitStats(userID, advisorWindowDays)
	if err != nil {
		slog.Error("Server.advisorHandler: habit stats failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute habit stats"))
		return
	}

	input := agent.AdvisorInput{
		Profile:             profile,
		Load:                load,
		Diary:               diary,
		HabitCompletionRate: averageCompletionRate(stats),
		ExtraContext:        req.Context,
	}
	text, modelTag, err := s.advisor.Generate(r.Context(), input)
	if err != nil {
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate recommendation"))
		return
	}

	record := models.AIRecommendation{
		ID:             uuid.NewString(),
		UserID:         userID,
		Recommendation: text,
		Context: map[string]any{
			"total_hours":           load.TotalHours,
			"load_level":            load.LoadLevel,
			"avg_mood":              diary.AvgMood,
			"habit_completion_rate": input.HabitCompletionRate,
		},
		Model:     modelTag,
		CreatedAt: s.now().UTC(),
	}
	if err := s.st.AddAIRecommendation(record); err != nil {
		slog.Warn("Server.advisorHandler: failed to persist recommendation", "error", err, "user_id", userID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(record))
}

func averageCompletionRate(stats []models.HabitStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	var sum float64
	for _, st := range stats {
		sum += st.CompletionRate
	}
	return sum / float64(len(stats))
}

// latestAdvisorHandler handles GET /api/ai/recommendations/latest.
func (s *Server) latestAdvisorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	userID := caller(r).UserID
	record, err := s.st.LatestAIRecommendation(userID)
	if err != nil {
		slog.Error("Server.latestAdvisorHandler: lookup failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch recommendation"))
		return
	}
	if record == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No recommendations generated yet"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(record))
}
