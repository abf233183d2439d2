// Package store provides storage backends for the MindAthlete API.
//
// It includes an in-memory store for tests and persistent PostgreSQL and
// SQLite backends behind the same Store interface.
package store

import (
	"strings"
	"time"

	"github.com/MindAthlete/backend/internal/models"
)

// Store is the persistence surface for the API. Lookups for a missing row
// return (nil, nil); errors are reserved for backend failures.
type Store interface {
	// Profiles. SaveUserProfile upserts by user ID.
	GetUserProfile(userID string) (*models.UserProfile, error)
	SaveUserProfile(profile models.UserProfile) error

	// Weekly schedule blocks.
	ListScheduleBlocks(userID string) ([]models.ScheduleBlock, error)
	GetScheduleBlock(id string) (*models.ScheduleBlock, error)
	AddScheduleBlock(block models.ScheduleBlock) error
	UpdateScheduleBlock(block models.ScheduleBlock) error
	DeleteScheduleBlock(id string) error

	// Diary entries, one per calendar date. SaveDiaryEntry upserts by
	// (user, date). Dates are YYYY-MM-DD strings and compare lexically.
	ListDiaryEntries(userID string, limit int) ([]models.DiaryEntry, error)
	ListDiaryEntriesSince(userID, date string) ([]models.DiaryEntry, error)
	GetDiaryEntryByDate(userID, date string) (*models.DiaryEntry, error)
	SaveDiaryEntry(entry models.DiaryEntry) error

	// Habits and per-date tracking. SaveHabitTracking upserts by
	// (habit, date).
	ListHabits(userID string, activeOnly bool) ([]models.Habit, error)
	GetHabit(id string) (*models.Habit, error)
	AddHabit(habit models.Habit) error
	UpdateHabit(habit models.Habit) error
	SaveHabitTracking(tracking models.HabitTracking) error
	ListHabitTrackingSince(userID, date string) ([]models.HabitTracking, error)

	// Guided session completions.
	AddSessionCompletion(completion models.SessionCompletion) error
	ListSessionCompletions(userID string, limit int) ([]models.SessionCompletion, error)

	// Calendar events. An empty kinds slice matches every kind.
	AddEvent(event models.Event) error
	ListEventsBetween(userID string, start, end time.Time, kinds []models.EventKind) ([]models.Event, error)

	// Entitlements.
	AddEntitlement(entitlement models.Entitlement) error
	ActiveEntitlements(userID string) ([]models.Entitlement, error)

	// Coach chats. SaveChat upserts by chat ID. The message counter on the
	// chat row is maintained by the caller and is not atomic with message
	// inserts.
	GetActiveChat(userID string) (*models.Chat, error)
	SaveChat(chat models.Chat) error
	AddChatMessage(message models.ChatMessage) error
	CountUserMessagesSince(userID string, since time.Time) (int, error)
	DeleteChatMessagesBefore(cutoff time.Time) (int64, error)

	// AI habit plans, kept for the regeneration cooldown.
	AddHabitPlan(plan models.HabitPlanRecord) error
	HasRecentAIHabitPlan(userID string, since time.Time) (bool, error)

	// Escalation and recommendation audit records.
	AddEscalation(record models.EscalationRecord) error
	AddRecommendation(record models.RecommendationRecord) error
	AddAIRecommendation(record models.AIRecommendation) error
	LatestAIRecommendation(userID string) (*models.AIRecommendation, error)

	// Client telemetry.
	AddAnalyticsEvent(event models.AnalyticsEvent) error
	CountAnalyticsEventsSince(userID string, since time.Time) (map[string]int, error)

	Close() error
}

// Opts holds store configuration options.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports the database driver a DSN belongs to: "postgres" for
// URL-style or key=value PostgreSQL connection strings, "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}
