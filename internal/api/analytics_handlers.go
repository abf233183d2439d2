package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/models"
)

// analyticsSummaryDays is the window GET /api/analytics/summary reports on.
const analyticsSummaryDays = 30

// analyticsEventHandler handles POST /api/analytics/events. Telemetry is
// fire-and-forget: a failed insert is logged and the caller still gets 202.
func (s *Server) analyticsEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.AnalyticsEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("event_type is required"))
		return
	}
	event := models.AnalyticsEvent{
		ID:        uuid.NewString(),
		UserID:    caller(r).UserID,
		EventType: req.EventType,
		EventData: req.EventData,
		Timestamp: s.now().UTC(),
	}
	if err := s.st.AddAnalyticsEvent(event); err != nil {
		slog.Warn("Server.analyticsEventHandler: insert failed", "error", err, "event_type", req.EventType)
	}
	writeJSONResponse(w, http.StatusAccepted, models.SuccessWithMessage("Event recorded", nil))
}

// analyticsSummaryHandler handles GET /api/analytics/summary.
func (s *Server) analyticsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	userID := caller(r).UserID
	since := s.now().UTC().AddDate(0, 0, -analyticsSummaryDays)
	counts, err := s.st.CountAnalyticsEventsSince(userID, since)
	if err != nil {
		slog.Error("Server.analyticsSummaryHandler: count failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to compute analytics summary"))
		return
	}
	summary := models.AnalyticsSummary{
		EventCounts: counts,
		PeriodDays:  analyticsSummaryDays,
	}
	for _, n := range counts {
		summary.TotalEvents += n
	}
	writeJSONResponse(w, http.StatusOK, models.Success(summary))
}
