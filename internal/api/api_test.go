package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MindAthlete/backend/internal/auth"
	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/store"
)

const (
	testToken  = "token-ana"
	otherToken = "token-luis"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	verifier := auth.StaticVerifier{
		testToken:  {UserID: "user-ana", Email: "ana@example.com"},
		otherToken: {UserID: "user-luis", Email: "luis@example.com"},
	}
	opts = append([]Option{WithBookingURL("https://booking.example.com/psych")}, opts...)
	return NewServer(st, verifier, nil, opts...), st
}

// daysAgo formats a date relative to today, for windowed aggregations.
func daysAgo(n int) string {
	return time.Now().UTC().AddDate(0, 0, -n).Format("2006-01-02")
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %q (body %q)", resp.Status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}
}

func TestHealthEndpointIsOpen(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("expected healthy status in body, got %q", rec.Body.String())
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/api/profile", "/api/habits", "/api/analytics/summary"} {
		rec := doRequest(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
	rec := doRequest(t, srv, http.MethodGet, "/api/profile", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with unknown token, got %d", rec.Code)
	}
}

func TestGetProfileReturnsEmptyProfileForNewUser(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/profile", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var profile models.UserProfile
	decodeResult(t, rec, &profile)
	if profile.UserID != "user-ana" || profile.Email != "ana@example.com" {
		t.Errorf("unexpected profile identity: %+v", profile)
	}
	if profile.QuestionnaireCompletedAt != nil {
		t.Error("new profile should not have a completed questionnaire")
	}
}

func TestQuestionnaireLiftsFieldsOntoProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/profile/questionnaire", testToken, map[string]any{
		"sport":              "natación",
		"level":              "nacional",
		"main_goal":          "controlar nervios precompetencia",
		"training_frequency": 6,
		"stress_factors":     []string{"exámenes"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var profile models.UserProfile
	decodeResult(t, rec, &profile)
	if profile.Sport != "natación" || profile.Level != "nacional" {
		t.Errorf("questionnaire fields not lifted: %+v", profile)
	}
	if profile.QuestionnaireCompletedAt == nil {
		t.Error("expected questionnaire completion timestamp")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/profile/questionnaire", testToken, map[string]any{"sport": "natación"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete questionnaire, got %d", rec.Code)
	}
}

func TestScheduleCRUDAndOwnership(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/schedules", testToken, map[string]any{
		"day_of_week": 1, "start_time": "08:00", "end_time": "10:00", "type": "academic", "title": "Cálculo",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var block models.ScheduleBlock
	decodeResult(t, rec, &block)
	if block.ID == "" || block.UserID != "user-ana" {
		t.Fatalf("unexpected block: %+v", block)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/schedules/"+block.ID, otherToken, map[string]any{"title": "robado"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for cross-user update, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/schedules/"+block.ID, testToken, map[string]any{"title": "Cálculo II"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeResult(t, rec, &block)
	if block.Title != "Cálculo II" {
		t.Errorf("update not applied: %+v", block)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/schedules/"+block.ID, testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodDelete, "/api/schedules/"+block.ID, testToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 deleting a deleted block, got %d", rec.Code)
	}
}

func TestWeeklyLoadLevels(t *testing.T) {
	srv, _ := newTestServer(t)

	add := func(day int, start, end, blockType string) {
		t.Helper()
		rec := doRequest(t, srv, http.MethodPost, "/api/schedules", testToken, map[string]any{
			"day_of_week": day, "start_time": start, "end_time": end, "type": blockType, "title": "bloque",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed block failed: %d (body %q)", rec.Code, rec.Body.String())
		}
	}
	// 22 academic hours and 20 training hours: total 42 is "high". The
	// personal block must not count toward either bucket.
	for day := 1; day <= 5; day++ {
		add(day, "08:00", "12:00", "academic")
		add(day, "16:00", "20:00", "training")
	}
	add(6, "09:00", "11:00", "academic")
	add(6, "12:00", "18:00", "personal")

	rec := doRequest(t, srv, http.MethodGet, "/api/schedules/weekly-load", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var load models.WeeklyLoad
	decodeResult(t, rec, &load)
	if load.AcademicHours != 22 || load.TrainingHours != 20 || load.TotalHours != 42 {
		t.Errorf("unexpected hours: %+v", load)
	}
	if load.LoadLevel != "high" {
		t.Errorf("expected high load level, got %q", load.LoadLevel)
	}
	if load.BalanceRatio != 1.1 {
		t.Errorf("expected balance ratio 1.1 (academic/training), got %v", load.BalanceRatio)
	}
}

func TestWeeklyLoadWithoutTrainingHasZeroRatio(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/schedules", testToken, map[string]any{
		"day_of_week": 1, "start_time": "08:00", "end_time": "12:00", "type": "academic", "title": "Cálculo",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed block failed: %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/schedules/weekly-load", testToken, nil)
	var load models.WeeklyLoad
	decodeResult(t, rec, &load)
	if load.BalanceRatio != 0 {
		t.Errorf("expected zero ratio with no training hours, got %v", load.BalanceRatio)
	}
	if load.LoadLevel != "low" {
		t.Errorf("expected low load level, got %q", load.LoadLevel)
	}
}

func TestDiaryUpsertAndWeeklySummary(t *testing.T) {
	srv, _ := newTestServer(t)

	yesterday, today := daysAgo(1), daysAgo(0)

	rec := doRequest(t, srv, http.MethodPost, "/api/diary/entries", testToken, map[string]any{
		"date": yesterday, "mood": 2, "energy": 3, "stress": 4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", rec.Code, rec.Body.String())
	}
	// Same date again: last write wins, no duplicate.
	rec = doRequest(t, srv, http.MethodPost, "/api/diary/entries", testToken, map[string]any{
		"date": yesterday, "mood": 4, "energy": 4, "stress": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on upsert, got %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/diary/entries", testToken, map[string]any{
		"date": today, "mood": 4, "energy": 3, "stress": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/diary/entries", testToken, nil)
	var entries []models.DiaryEntry
	decodeResult(t, rec, &entries)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/diary/entries/"+yesterday, testToken, nil)
	var entry models.DiaryEntry
	decodeResult(t, rec, &entry)
	if entry.Mood != 4 {
		t.Errorf("upsert did not overwrite mood: %+v", entry)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/diary/entries/2024-01-01", testToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing date, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/diary/weekly-summary", testToken, nil)
	var summary models.DiarySummary
	decodeResult(t, rec, &summary)
	if summary.EntriesCount != 2 || summary.AvgMood != 4 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Trend != "positiva" {
		t.Errorf("expected positiva trend, got %q", summary.Trend)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/diary/entries", testToken, map[string]any{
		"date": today, "mood": 9, "energy": 3, "stress": 2,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-scale mood, got %d", rec.Code)
	}
}

func TestHabitTrackingAndStats(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/habits", testToken, map[string]any{
		"title": "Respiración nocturna", "frequency": "daily",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var habit models.Habit
	decodeResult(t, rec, &habit)
	if !habit.Active {
		t.Error("new habits should start active")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/habits/"+habit.ID+"/track", otherToken, map[string]any{
		"date": daysAgo(1), "completed": true,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 tracking another user's habit, got %d", rec.Code)
	}

	for _, date := range []string{daysAgo(3), daysAgo(2), daysAgo(1)} {
		rec = doRequest(t, srv, http.MethodPost, "/api/habits/"+habit.ID+"/track", testToken, map[string]any{
			"date": date, "completed": true,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("track failed: %d (body %q)", rec.Code, rec.Body.String())
		}
	}
	// Re-track an already tracked date: upsert, not a fourth completion.
	rec = doRequest(t, srv, http.MethodPost, "/api/habits/"+habit.ID+"/track", testToken, map[string]any{
		"date": daysAgo(1), "completed": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("re-track failed: %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/habits/stats", testToken, nil)
	var stats []models.HabitStat
	decodeResult(t, rec, &stats)
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat row, got %d", len(stats))
	}
	if stats[0].CompletedCount != 3 || stats[0].TotalDays != 30 {
		t.Errorf("unexpected stat: %+v", stats[0])
	}
	if stats[0].CompletionRate != 10 {
		t.Errorf("expected 10%% completion rate, got %v", stats[0].CompletionRate)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/habits/"+habit.ID, testToken, map[string]any{"active": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate failed: %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, "/api/habits?active=true", testToken, nil)
	var habits []models.Habit
	decodeResult(t, rec, &habits)
	if len(habits) != 0 {
		t.Errorf("expected no active habits, got %d", len(habits))
	}
}

func TestSessionCatalogAndHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/sessions/types", testToken, nil)
	var types []models.SessionType
	decodeResult(t, rec, &types)
	if len(types) != 5 {
		t.Fatalf("expected 5 session types, got %d", len(types))
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/sessions/complete", testToken, map[string]any{
		"session_type": "focus", "duration": 15, "rating": 4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/sessions/history", testToken, nil)
	var sessions []models.SessionCompletion
	decodeResult(t, rec, &sessions)
	if len(sessions) != 1 || sessions[0].SessionType != "focus" {
		t.Errorf("unexpected history: %+v", sessions)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/sessions/history", otherToken, nil)
	decodeResult(t, rec, &sessions)
	if len(sessions) != 0 {
		t.Errorf("history leaked across users: %+v", sessions)
	}
}

func TestDailyRecommendationMockAndAudit(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/recommendations/daily", testToken, map[string]any{
		"date": "not-a-date",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/recommendations/daily", testToken, map[string]any{
		"user_id": "user-luis", "date": "2024-11-05",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for cross-user payload, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/recommendations/daily", testToken, map[string]any{
		"date": "2024-11-05",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var resp models.DailyRecommendationResponse
	decodeResult(t, rec, &resp)
	if len(resp.Recommendations) == 0 {
		t.Error("expected at least one recommendation")
	}
	if resp.ModelVersion != "mock-2024.11" {
		t.Errorf("expected mock version marker, got %q", resp.ModelVersion)
	}

	records := st.Recommendations()
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	if records[0].UserID != "user-ana" || records[0].Context != "2024-11-05" {
		t.Errorf("unexpected audit record: %+v", records[0])
	}
}

func TestCoachChatStreamsNDJSON(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/coach/chat", testToken, map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "Hoy me costó concentrarme, escríbeme a ana@example.com"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("expected NDJSON content type, got %q", ct)
	}

	scanner := bufio.NewScanner(rec.Body)
	var lines []map[string]any
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("stream line is not JSON: %v (%q)", err, scanner.Text())
		}
		lines = append(lines, obj)
	}
	if len(lines) < 2 {
		t.Fatalf("expected delta and terminal objects, got %d lines", len(lines))
	}
	for _, obj := range lines[:len(lines)-1] {
		if obj["finished"] == true {
			t.Errorf("non-terminal line marked finished: %v", obj)
		}
		if obj["delta"] == "" {
			t.Errorf("empty delta chunk: %v", obj)
		}
	}
	final := lines[len(lines)-1]
	if final["finished"] != true {
		t.Errorf("terminal object not marked finished: %v", final)
	}
	if final["chat_id"] == "" {
		t.Errorf("terminal object missing chat ID: %v", final)
	}

	// Both turns persisted, the user one sanitized.
	messages := st.ChatMessages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(messages))
	}
	if strings.Contains(messages[0].Content, "ana@example.com") {
		t.Errorf("user message persisted unsanitized: %q", messages[0].Content)
	}
	if !strings.Contains(messages[0].Content, "[email]") {
		t.Errorf("expected email placeholder in persisted message: %q", messages[0].Content)
	}
	if messages[1].Role != models.ChatRoleAssistant {
		t.Errorf("expected assistant reply persisted, got %+v", messages[1])
	}
}

func TestCoachChatQuotaExhaustionReturns402(t *testing.T) {
	srv, _ := newTestServer(t, WithChatDailyLimit(2))

	body := map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hola"}},
	}
	for i := 0; i < 2; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/api/coach/chat", testToken, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("message %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/coach/chat", testToken, body)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 after quota, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), models.ErrQuotaExceeded.Error()) {
		t.Errorf("expected quota message, got %q", rec.Body.String())
	}

	// Premium users are never capped.
	if err := seedPremium(srv, "user-luis"); err != nil {
		t.Fatalf("seed entitlement: %v", err)
	}
	for i := 0; i < 4; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/api/coach/chat", otherToken, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("premium message %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func seedPremium(srv *Server, userID string) error {
	return srv.st.AddEntitlement(models.Entitlement{
		ID:        userID + "-premium",
		UserID:    userID,
		Product:   "mindathlete_premium_monthly",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

func TestCoachChatEscalationIsAudited(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/coach/chat", testToken, map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "Siento mucha ansiedad antes de competir"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"escalate":true`) {
		t.Errorf("expected escalation in terminal object, got %q", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "https://booking.example.com/psych") {
		t.Errorf("expected booking URL in terminal object, got %q", rec.Body.String())
	}

	escalations := st.Escalations()
	if len(escalations) != 1 {
		t.Fatalf("expected 1 escalation record, got %d", len(escalations))
	}
	if escalations[0].Source != "chat" || escalations[0].Status != "scheduled" {
		t.Errorf("unexpected escalation record: %+v", escalations[0])
	}
}

func TestHabitPlanCooldownReturns402(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/coach/habit-plan", testToken, map[string]any{
		"timeframe": "próximos 7 días",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var plan models.HabitPlanResponse
	decodeResult(t, rec, &plan)
	if len(plan.Habits) != 2 {
		t.Errorf("expected free tier truncation to 2 habits, got %d", len(plan.Habits))
	}
	if len(st.HabitPlans()) != 1 {
		t.Fatalf("expected persisted plan record, got %d", len(st.HabitPlans()))
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/coach/habit-plan", testToken, map[string]any{})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 during cooldown, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), models.ErrCooldownActive.Error()) {
		t.Errorf("expected cooldown message, got %q", rec.Body.String())
	}
}

func TestEscalateDecisionAndAudit(t *testing.T) {
	srv, st := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/escalate", testToken, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without context, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/escalate", testToken, map[string]any{
		"context": map[string]any{"stress_score": 80},
		"reason":  "bloqueo en la final",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var decision models.EscalationResponse
	decodeResult(t, rec, &decision)
	if !decision.Escalate {
		t.Error("expected escalation for score 80")
	}
	if decision.BookingURL == "" {
		t.Error("expected booking URL on escalation")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/escalate", testToken, map[string]any{
		"context": map[string]any{"stress_score": 10},
	})
	decodeResult(t, rec, &decision)
	if decision.Escalate {
		t.Error("expected no escalation for score 10 on free tier")
	}

	escalations := st.Escalations()
	if len(escalations) != 2 {
		t.Fatalf("expected both decisions audited, got %d", len(escalations))
	}
	if escalations[0].Status != "scheduled" || escalations[1].Status != "dismissed" {
		t.Errorf("unexpected statuses: %q, %q", escalations[0].Status, escalations[1].Status)
	}
}

func TestAdvisorGeneratesAndServesLatest(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/ai/recommendations/latest", testToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any generation, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/ai/recommendations", testToken, map[string]any{
		"context": "semana de selectivos",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var generated models.AIRecommendation
	decodeResult(t, rec, &generated)
	if generated.Recommendation == "" {
		t.Error("expected recommendation text")
	}
	if generated.Model != "mock-2024.11" {
		t.Errorf("expected mock version marker, got %q", generated.Model)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/ai/recommendations/latest", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var latest models.AIRecommendation
	decodeResult(t, rec, &latest)
	if latest.ID != generated.ID {
		t.Errorf("latest should return the generated record: %q vs %q", latest.ID, generated.ID)
	}
}

func TestAdvisorAssumesNeutralWeekWithoutDiaryEntries(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/ai/recommendations", testToken, map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	var generated models.AIRecommendation
	decodeResult(t, rec, &generated)
	mood, ok := generated.Context["avg_mood"].(float64)
	if !ok {
		t.Fatalf("expected numeric avg_mood in context, got %v", generated.Context["avg_mood"])
	}
	if mood != 3 {
		t.Errorf("expected neutral avg_mood 3 without diary entries, got %v", mood)
	}
}

func TestAnalyticsEventsAndSummary(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/analytics/events", testToken, map[string]any{
		"event_data": map[string]any{"screen": "home"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without event_type, got %d", rec.Code)
	}

	for _, eventType := range []string{"screen_view", "screen_view", "session_started"} {
		rec = doRequest(t, srv, http.MethodPost, "/api/analytics/events", testToken, map[string]any{
			"event_type": eventType,
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/analytics/summary", testToken, nil)
	var summary models.AnalyticsSummary
	decodeResult(t, rec, &summary)
	if summary.TotalEvents != 3 || summary.EventCounts["screen_view"] != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.PeriodDays != 30 {
		t.Errorf("expected 30-day window, got %d", summary.PeriodDays)
	}
}

func TestMethodNotAllowedCarriesAllowHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodDelete, "/api/profile", testToken, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, "GET") {
		t.Errorf("expected Allow header, got %q", allow)
	}
}
