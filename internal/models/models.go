// Package models defines the core data structures for the MindAthlete API.
//
// It includes entity types persisted by the store, request/response payloads
// for the HTTP endpoints, and the shared API response envelope.
package models

import (
	"errors"
	"time"
)

// SubscriptionTier gates quotas, cooldowns and escalation sensitivity.
type SubscriptionTier string

const (
	// TierFree is the default tier when no premium entitlement is active.
	TierFree SubscriptionTier = "free"
	// TierPremium removes chat quotas, habit-plan cooldowns and lowers the
	// escalation severity bar.
	TierPremium SubscriptionTier = "premium"
)

// EventKind classifies calendar events. Values match the mobile client's
// Spanish vocabulary as stored in the events table.
type EventKind string

const (
	// EventKindTraining is a scheduled training block.
	EventKindTraining EventKind = "entreno"
	// EventKindCompetition is a competition day.
	EventKindCompetition EventKind = "competencia"
	// EventKindOther covers academic and personal events.
	EventKindOther EventKind = "otro"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// IsValidChatRole checks if the given chat role is supported.
func IsValidChatRole(r ChatRole) bool {
	switch r {
	case ChatRoleUser, ChatRoleAssistant, ChatRoleSystem:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrQuotaExceeded     = errors.New("daily chat limit reached")
	ErrCooldownActive    = errors.New("habit plan recently generated")
	ErrForbidden         = errors.New("not authorized to access another user's data")
	ErrMissingMessages   = errors.New("at least one message is required")
	ErrInvalidChatRole   = errors.New("invalid chat message role")
	ErrEmptyMessageBody  = errors.New("message content cannot be empty")
	ErrInvalidDate       = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTimeOfDay  = errors.New("time must be in HH:MM format")
	ErrInvalidDayOfWeek  = errors.New("day_of_week must be between 0 and 6")
	ErrInvalidScaleValue = errors.New("scale values must be between 1 and 5")
	ErrEmptyTitle        = errors.New("title is required")
	ErrEmptyContext      = errors.New("context is required")
)

// ============ Persisted entities ============

// UserProfile is the athlete's profile row in user_profiles.
type UserProfile struct {
	UserID                   string         `json:"user_id"`
	Email                    string         `json:"email,omitempty"`
	FullName                 string         `json:"full_name,omitempty"`
	Sport                    string         `json:"sport,omitempty"`
	Level                    string         `json:"level,omitempty"`
	Goals                    []string       `json:"goals,omitempty"`
	StressFactors            []string       `json:"stress_factors,omitempty"`
	TrainingFrequency        int            `json:"training_frequency,omitempty"`
	QuestionnaireData        map[string]any `json:"questionnaire_data,omitempty"`
	QuestionnaireCompletedAt *time.Time     `json:"questionnaire_completed_at,omitempty"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// ScheduleBlock is a recurring weekly block (academic or training).
type ScheduleBlock struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	DayOfWeek int       `json:"day_of_week"` // 0=Monday .. 6=Sunday
	StartTime string    `json:"start_time"`  // HH:MM
	EndTime   string    `json:"end_time"`    // HH:MM
	Type      string    `json:"type"`        // "academic" or "training"
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiaryEntry is one mood/energy/stress check-in per calendar date.
type DiaryEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Mood       int       `json:"mood"`
	Energy     int       `json:"energy"`
	Stress     int       `json:"stress"`
	Notes      string    `json:"notes,omitempty"`
	Highlights []string  `json:"highlights,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Habit is an athlete-defined routine being tracked.
type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Frequency   string    `json:"frequency"` // "daily", "weekly"
	Category    string    `json:"category,omitempty"`
	TargetDays  []int     `json:"target_days,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HabitTracking is one completion record for a habit on a date.
type HabitTracking struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habit_id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Completed bool      `json:"completed"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionCompletion records a finished guided session.
type SessionCompletion struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionType string    `json:"session_type"`
	Duration    int       `json:"duration"` // minutes
	Rating      int       `json:"rating,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Event is a calendar event owned by the external schedule. Immutable once
// fetched for a computation.
type Event struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	Title    string     `json:"title"`
	Kind     EventKind  `json:"kind"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty"` // defaults to StartsAt when absent
	Notes    string     `json:"notes,omitempty"`
}

// End returns the effective end instant, falling back to the start for
// events stored without one.
func (e Event) End() time.Time {
	if e.EndsAt != nil {
		return *e.EndsAt
	}
	return e.StartsAt
}

// Entitlement asserts that a user currently holds a purchased product.
type Entitlement struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Product   string    `json:"product"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat groups coach conversation messages.
type Chat struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	MessageCount  int       `json:"message_count"`
	IsActive      bool      `json:"is_active"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChatMessage is a single turn persisted for a chat. Content is stored
// sanitized (emails and phone numbers masked).
type ChatMessage struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chat_id"`
	UserID    string         `json:"user_id"`
	Role      ChatRole       `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// HabitPlanRecord is a generated habit plan persisted for cooldown checks.
type HabitPlanRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Plan      map[string]any `json:"plan_json"`
	Summary   string         `json:"summary,omitempty"`
	Source    string         `json:"source"` // "AI"
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EscalationRecord is the audit row written for every escalation decision,
// whether or not a referral was surfaced.
type EscalationRecord struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Reason     string         `json:"reason"`
	Context    map[string]any `json:"context,omitempty"`
	Status     string         `json:"status"` // "scheduled" or "dismissed"
	BookingURL string         `json:"booking_url,omitempty"`
	Source     string         `json:"source,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RecommendationRecord is the audit row for a generated daily agenda
// recommendation.
type RecommendationRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Context   string         `json:"context,omitempty"`
	Reason    map[string]any `json:"reason,omitempty"`
	Message   string         `json:"message,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AIRecommendation is a stored advisor recommendation built from the
// athlete's aggregated weekly state.
type AIRecommendation struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Recommendation string         `json:"recommendation"`
	Context        map[string]any `json:"context,omitempty"`
	Model          string         `json:"model"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AnalyticsEvent is a fire-and-forget client telemetry event.
type AnalyticsEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ============ Derived types ============

// FreeSlot is a calendar interval with no scheduled event. Derived, never
// persisted. Invariant: End > Start and the duration is at least 15 minutes.
type FreeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Minutes returns the slot duration in whole minutes.
func (s FreeSlot) Minutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

// EventContext is the compact event view handed to agents and echoed back in
// recommendation responses.
type EventContext struct {
	Title string    `json:"title"`
	Kind  EventKind `json:"kind,omitempty"`
	Start string    `json:"start"`
	End   string    `json:"end"`
	Notes string    `json:"notes,omitempty"`
}
