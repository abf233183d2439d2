package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/agent"
	"github.com/MindAthlete/backend/internal/escalation"
	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/privacy"
	"github.com/MindAthlete/backend/internal/timeutil"
)

// chatStreamChunkRunes is the delta size of the NDJSON chat stream.
const chatStreamChunkRunes = 220

// chatTitleRunes caps the chat title derived from the first user message.
const chatTitleRunes = 60

// dailyRecommendationHandler handles POST /api/recommendations/daily: it
// fetches the day's events, computes free slots and asks the agenda agent
// for recommendations.
func (s *Server) dailyRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.DailyRecommendationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if !checkPayloadUser(w, r, req.UserID) {
		return
	}
	userID := caller(r).UserID

	resolution := s.gatekeeper.ResolveTier(userID)
	s.sweepExpiredChats()

	targetDate, err := timeutil.ParseDate(req.Date)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrInvalidDate.Error()))
		return
	}
	dayStart, dayEnd := timeutil.DayBounds(targetDate)
	events, err := s.st.ListEventsBetween(userID, dayStart, dayEnd, eventKindFilter(req))
	if err != nil {
		slog.Error("Server.dailyRecommendationHandler: event fetch failed", "error", err, "user_id", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch events"))
		return
	}

	resp := s.recommender.Generate(r.Context(), targetDate, resolution.Tier, events)

	record := models.RecommendationRecord{
		ID:      uuid.NewString(),
		UserID:  userID,
		Context: req.Date,
		Reason: map[string]any{
			"rationale":     resp.Rationale,
			"model_version": resp.ModelVersion,
			"tier":          string(resolution.Tier),
		},
		Message:   strings.Join(resp.Recommendations, "\n"),
		CreatedAt: s.now().UTC(),
	}
	if err := s.st.AddRecommendation(record); err != nil {
		slog.Warn("Server.dailyRecommendationHandler: audit record failed", "error", err, "user_id", userID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

// eventKindFilter maps the request's include flags to a kind filter. Nil
// means no filtering.
func eventKindFilter(req models.DailyRecommendationRequest) []models.EventKind {
	if req.IncludeCompetitions == nil && req.IncludeTraining == nil {
		return nil
	}
	kinds := make([]models.EventKind, 0, 3)
	if req.IncludeTraining == nil || *req.IncludeTraining {
		kinds = append(kinds, models.EventKindTraining)
	}
	if req.IncludeCompetitions == nil || *req.IncludeCompetitions {
		kinds = append(kinds, models.EventKindCompetition)
	}
	kinds = append(kinds, models.EventKindOther)
	return kinds
}

// coachChatHandler handles POST /api/coach/chat. The reply streams as
// NDJSON: delta objects carrying the chunked reply text, then a terminal
// object with the escalation verdict.
func (s *Server) coachChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.CoachChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if !checkPayloadUser(w, r, req.UserID) {
		return
	}
	userID := caller(r).UserID

	resolution := s.gatekeeper.ResolveTier(userID)
	if err := s.gatekeeper.CheckChatQuota(userID, resolution.Tier); err != nil {
		writeJSONResponse(w, http.StatusPaymentRequired, models.Error(err.Error()))
		return
	}

	now := s.now().UTC()
	chat := s.resolveChat(userID, req.ChatID, req.Messages, now)

	if last := lastUserMessage(req.Messages); last != "" {
		msg := models.ChatMessage{
			ID:        uuid.NewString(),
			ChatID:    chat.ID,
			UserID:    userID,
			Role:      models.ChatRoleUser,
			Content:   privacy.Sanitize(last),
			CreatedAt: now,
		}
		if err := s.st.AddChatMessage(msg); err != nil {
			slog.Warn("Server.coachChatHandler: failed to persist user message", "error", err, "chat_id", chat.ID)
		}
	}

	result := s.coach.GenerateReply(r.Context(), req.Messages, req.Tone, req.TargetGoal)

	reply := models.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		UserID:    userID,
		Role:      models.ChatRoleAssistant,
		Content:   result.Reply,
		Metadata:  map[string]any{"model": result.Model},
		CreatedAt: now,
	}
	if err := s.st.AddChatMessage(reply); err != nil {
		slog.Warn("Server.coachChatHandler: failed to persist reply", "error", err, "chat_id", chat.ID)
	}

	chat.MessageCount += 2
	chat.LastMessageAt = now
	chat.UpdatedAt = now
	if err := s.st.SaveChat(chat); err != nil {
		slog.Warn("Server.coachChatHandler: failed to save chat", "error", err, "chat_id", chat.ID)
	}

	bookingURL := ""
	if result.Escalate {
		bookingURL = s.engine.BookingURL()
		record := models.EscalationRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			Reason:     "Kai detectó marcadores de estrés elevado",
			Status:     "scheduled",
			BookingURL: bookingURL,
			Source:     "chat",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.st.AddEscalation(record); err != nil {
			slog.Warn("Server.coachChatHandler: failed to record escalation", "error", err, "chat_id", chat.ID)
		}
	}

	s.sweepExpiredChats()
	s.streamChatReply(w, chat.ID, result, bookingURL)
}

// resolveChat finds the conversation to append to: the client-supplied chat
// ID, the user's active chat, or a fresh one titled after the first user
// message.
func (s *Server) resolveChat(userID, chatID string, messages []models.CoachChatMessage, now time.Time) models.Chat {
	chat, err := s.st.GetActiveChat(userID)
	if err != nil {
		slog.Warn("Server.resolveChat: active chat lookup failed", "error", err, "user_id", userID)
		chat = nil
	}
	if chat != nil && (chatID == "" || chat.ID == chatID) {
		return *chat
	}
	id := chatID
	if id == "" {
		id = uuid.NewString()
	}
	return models.Chat{
		ID:        id,
		UserID:    userID,
		Title:     chatTitle(messages),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func chatTitle(messages []models.CoachChatMessage) string {
	for _, m := range messages {
		if m.Role != models.ChatRoleUser || m.Content == "" {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > chatTitleRunes {
			return string(runes[:chatTitleRunes])
		}
		return m.Content
	}
	return "Conversación con Kai"
}

func lastUserMessage(messages []models.CoachChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.ChatRoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// streamChatReply writes the coach reply as NDJSON: one delta object per
// chunk, then the terminal object.
func (s *Server) streamChatReply(w http.ResponseWriter, chatID string, result agent.ChatResult, bookingURL string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	for _, chunk := range timeutil.ChunkText(result.Reply, chatStreamChunkRunes) {
		if err := enc.Encode(models.ChatStreamDelta{ChatID: chatID, Delta: chunk}); err != nil {
			slog.Warn("Server.streamChatReply: stream write failed", "error", err, "chat_id", chatID)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	final := models.ChatStreamFinal{
		ChatID:     chatID,
		Finished:   true,
		Escalate:   result.Escalate,
		HabitHint:  result.HabitHint,
		BookingURL: bookingURL,
		Model:      result.Model,
	}
	if err := enc.Encode(final); err != nil {
		slog.Warn("Server.streamChatReply: terminal write failed", "error", err, "chat_id", chatID)
		return
	}
	if flusher != nil {
		flusher.Flush()
	}
}

// habitPlanHandler handles POST /api/coach/habit-plan.
func (s *Server) habitPlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.HabitPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkPayloadUser(w, r, req.UserID) {
		return
	}
	userID := caller(r).UserID

	resolution := s.gatekeeper.ResolveTier(userID)
	if err := s.gatekeeper.CheckHabitPlanCooldown(userID, resolution.Tier); err != nil {
		writeJSONResponse(w, http.StatusPaymentRequired, models.Error(err.Error()))
		return
	}

	plan := s.planner.Generate(r.Context(), req.Timeframe, req.Context, resolution.Tier)

	now := s.now().UTC()
	record := models.HabitPlanRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      habitPlanAsMap(plan),
		Summary:   plan.Summary,
		Source:    "AI",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.AddHabitPlan(record); err != nil {
		slog.Warn("Server.habitPlanHandler: failed to persist plan", "error", err, "user_id", userID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(plan))
}

func habitPlanAsMap(plan models.HabitPlanResponse) map[string]any {
	habits := make([]any, 0, len(plan.Habits))
	for _, h := range plan.Habits {
		habits = append(habits, map[string]any{
			"title":                  h.Title,
			"recommended_start_date": h.RecommendedStartDate,
			"frequency":              h.Frequency,
			"rationale":              h.Rationale,
		})
	}
	return map[string]any{"habits": habits, "summary": plan.Summary}
}

// escalateHandler handles POST /api/escalate: a rule-based decision over the
// supplied stress signals, always audited.
func (s *Server) escalateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req models.EscalationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if !checkPayloadUser(w, r, req.UserID) {
		return
	}
	userID := caller(r).UserID

	resolution := s.gatekeeper.ResolveTier(userID)
	signals := escalation.ContextFromRequest(req)
	decision := s.engine.Decide(signals, resolution.Tier)

	status := "dismissed"
	if decision.Escalate {
		status = "scheduled"
	}
	now := s.now().UTC()
	record := models.EscalationRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		Reason:     signals.Reason,
		Context:    req.Context,
		Status:     status,
		BookingURL: decision.BookingURL,
		Source:     "api",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.st.AddEscalation(record); err != nil {
		slog.Warn("Server.escalateHandler: failed to record decision", "error", err, "user_id", userID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(decision))
}
