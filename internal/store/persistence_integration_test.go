package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MindAthlete/backend/internal/models"
)

// exercisePersistentStore runs a CRUD round trip covering JSON columns,
// upserts and time-window queries against a real backend.
func exercisePersistentStore(t *testing.T, s Store) {
	t.Helper()
	userID := "it-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)

	completedAt := now
	profile := models.UserProfile{
		UserID:                   userID,
		Email:                    "athlete@example.com",
		Sport:                    "natación",
		Goals:                    []string{"clasificar", "dormir mejor"},
		StressFactors:            []string{"exámenes"},
		TrainingFrequency:        5,
		QuestionnaireData:        map[string]any{"q1": "a", "q2": float64(3)},
		QuestionnaireCompletedAt: &completedAt,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.SaveUserProfile(profile); err != nil {
		t.Fatalf("SaveUserProfile: %v", err)
	}
	profile.Sport = "atletismo"
	if err := s.SaveUserProfile(profile); err != nil {
		t.Fatalf("SaveUserProfile upsert: %v", err)
	}
	got, err := s.GetUserProfile(userID)
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if got == nil || got.Sport != "atletismo" {
		t.Fatalf("profile = %+v", got)
	}
	if len(got.Goals) != 2 || got.Goals[0] != "clasificar" {
		t.Errorf("goals round trip failed: %v", got.Goals)
	}
	if got.QuestionnaireData["q1"] != "a" {
		t.Errorf("questionnaire round trip failed: %v", got.QuestionnaireData)
	}
	if got.QuestionnaireCompletedAt == nil || !got.QuestionnaireCompletedAt.Equal(completedAt) {
		t.Errorf("completed_at round trip failed: %v", got.QuestionnaireCompletedAt)
	}

	block := models.ScheduleBlock{
		ID: uuid.NewString(), UserID: userID, DayOfWeek: 1, StartTime: "07:00",
		EndTime: "09:00", Type: "training", Title: "Piscina", CreatedAt: now, UpdatedAt: now,
	}
	if err := s.AddScheduleBlock(block); err != nil {
		t.Fatalf("AddScheduleBlock: %v", err)
	}
	blocks, err := s.ListScheduleBlocks(userID)
	if err != nil || len(blocks) != 1 {
		t.Fatalf("ListScheduleBlocks: %v %v", blocks, err)
	}
	if err := s.DeleteScheduleBlock(block.ID); err != nil {
		t.Fatalf("DeleteScheduleBlock: %v", err)
	}

	entry := models.DiaryEntry{
		ID: uuid.NewString(), UserID: userID, Date: "2024-11-05", Mood: 3, Energy: 3,
		Stress: 3, Highlights: []string{"buen entreno"}, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.SaveDiaryEntry(entry); err != nil {
		t.Fatalf("SaveDiaryEntry: %v", err)
	}
	entry.ID = uuid.NewString()
	entry.Mood = 5
	if err := s.SaveDiaryEntry(entry); err != nil {
		t.Fatalf("SaveDiaryEntry upsert: %v", err)
	}
	entries, err := s.ListDiaryEntries(userID, 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("diary upsert created duplicates: %v %v", entries, err)
	}
	if entries[0].Mood != 5 || len(entries[0].Highlights) != 1 {
		t.Errorf("diary round trip failed: %+v", entries[0])
	}

	event := models.Event{
		ID: uuid.NewString(), UserID: userID, Title: "Final",
		Kind: models.EventKindCompetition, StartsAt: now.Add(2 * time.Hour),
	}
	if err := s.AddEvent(event); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	events, err := s.ListEventsBetween(userID, now, now.Add(24*time.Hour), []models.EventKind{models.EventKindCompetition})
	if err != nil || len(events) != 1 {
		t.Fatalf("ListEventsBetween: %v %v", events, err)
	}
	if events[0].EndsAt != nil {
		t.Errorf("absent end must stay nil, got %v", events[0].EndsAt)
	}

	chat := models.Chat{ID: uuid.NewString(), UserID: userID, IsActive: true, LastMessageAt: now, CreatedAt: now, UpdatedAt: now}
	if err := s.SaveChat(chat); err != nil {
		t.Fatalf("SaveChat: %v", err)
	}
	msg := models.ChatMessage{
		ID: uuid.NewString(), ChatID: chat.ID, UserID: userID, Role: models.ChatRoleUser,
		Content: "hola", Metadata: map[string]any{"model": "mock"}, CreatedAt: now,
	}
	if err := s.AddChatMessage(msg); err != nil {
		t.Fatalf("AddChatMessage: %v", err)
	}
	count, err := s.CountUserMessagesSince(userID, now.Add(-time.Minute))
	if err != nil || count != 1 {
		t.Fatalf("CountUserMessagesSince = %d, %v", count, err)
	}
	stale := models.ChatMessage{
		ID: uuid.NewString(), ChatID: chat.ID, UserID: userID, Role: models.ChatRoleUser,
		Content: "mensaje antiguo", CreatedAt: now.AddDate(0, 0, -120),
	}
	if err := s.AddChatMessage(stale); err != nil {
		t.Fatalf("AddChatMessage (stale): %v", err)
	}
	deleted, err := s.DeleteChatMessagesBefore(now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("DeleteChatMessagesBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteChatMessagesBefore deleted %d rows, want 1", deleted)
	}
	count, err = s.CountUserMessagesSince(userID, now.AddDate(0, 0, -365))
	if err != nil || count != 1 {
		t.Fatalf("retained message count = %d, %v", count, err)
	}

	if err := s.AddEntitlement(models.Entitlement{ID: uuid.NewString(), UserID: userID, Product: "premium_monthly", Active: true, CreatedAt: now}); err != nil {
		t.Fatalf("AddEntitlement: %v", err)
	}
	active, err := s.ActiveEntitlements(userID)
	if err != nil || len(active) != 1 {
		t.Fatalf("ActiveEntitlements: %v %v", active, err)
	}

	if err := s.AddHabitPlan(models.HabitPlanRecord{
		ID: uuid.NewString(), UserID: userID, Plan: map[string]any{"habits": []any{}},
		Source: "AI", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("AddHabitPlan: %v", err)
	}
	recent, err := s.HasRecentAIHabitPlan(userID, now.Add(-time.Hour))
	if err != nil || !recent {
		t.Fatalf("HasRecentAIHabitPlan = %v, %v", recent, err)
	}

	if err := s.AddAIRecommendation(models.AIRecommendation{
		ID: uuid.NewString(), UserID: userID, Recommendation: "descansa", Model: "mock-2024.11", CreatedAt: now,
	}); err != nil {
		t.Fatalf("AddAIRecommendation: %v", err)
	}
	latest, err := s.LatestAIRecommendation(userID)
	if err != nil || latest == nil || latest.Recommendation != "descansa" {
		t.Fatalf("LatestAIRecommendation: %v %v", latest, err)
	}
}

func TestPostgresStoreIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping Postgres integration test")
	}
	s, err := NewPostgresStore(WithPostgresDSN(dsn))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()
	exercisePersistentStore(t, s)
}

func TestSQLiteStoreIntegration(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "mindathlete.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exercisePersistentStore(t, s)
}
