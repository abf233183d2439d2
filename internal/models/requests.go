// Package models: request and response payloads for the HTTP endpoints.
package models

import "time"

// timeOfDayLayout is the HH:MM layout used by schedule blocks.
const timeOfDayLayout = "15:04"

// DateLayout is the YYYY-MM-DD layout used for diary and tracking dates.
const DateLayout = "2006-01-02"

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func validTimeOfDay(s string) bool {
	_, err := time.Parse(timeOfDayLayout, s)
	return err == nil
}

func validScale(v int) bool { return v >= 1 && v <= 5 }

// UpdateProfileRequest carries a partial profile update; nil fields are left
// untouched.
type UpdateProfileRequest struct {
	FullName          *string        `json:"full_name,omitempty"`
	Sport             *string        `json:"sport,omitempty"`
	Level             *string        `json:"level,omitempty"`
	Goals             *[]string      `json:"goals,omitempty"`
	StressFactors     *[]string      `json:"stress_factors,omitempty"`
	TrainingFrequency *int           `json:"training_frequency,omitempty"`
	QuestionnaireData map[string]any `json:"questionnaire_data,omitempty"`
}

// Apply copies the set fields onto the profile.
func (r *UpdateProfileRequest) Apply(p *UserProfile) {
	if r.FullName != nil {
		p.FullName = *r.FullName
	}
	if r.Sport != nil {
		p.Sport = *r.Sport
	}
	if r.Level != nil {
		p.Level = *r.Level
	}
	if r.Goals != nil {
		p.Goals = *r.Goals
	}
	if r.StressFactors != nil {
		p.StressFactors = *r.StressFactors
	}
	if r.TrainingFrequency != nil {
		p.TrainingFrequency = *r.TrainingFrequency
	}
	if r.QuestionnaireData != nil {
		p.QuestionnaireData = r.QuestionnaireData
	}
}

// QuestionnaireRequest is the onboarding questionnaire payload.
type QuestionnaireRequest struct {
	Sport             string   `json:"sport"`
	Level             string   `json:"level"`
	MainGoal          string   `json:"main_goal"`
	TrainingFrequency int      `json:"training_frequency"`
	StressFactors     []string `json:"stress_factors"`
	RestQuality       int      `json:"rest_quality"`
	Expectations      string   `json:"expectations"`
	AcademicLoad      string   `json:"academic_load,omitempty"`
}

// Validate checks the questionnaire payload.
func (r *QuestionnaireRequest) Validate() error {
	if r.Sport == "" || r.Level == "" || r.MainGoal == "" {
		return ErrEmptyTitle
	}
	return nil
}

// AsMap returns the questionnaire as the raw map stored in
// questionnaire_data.
func (r *QuestionnaireRequest) AsMap() map[string]any {
	return map[string]any{
		"sport":              r.Sport,
		"level":              r.Level,
		"main_goal":          r.MainGoal,
		"training_frequency": r.TrainingFrequency,
		"stress_factors":     r.StressFactors,
		"rest_quality":       r.RestQuality,
		"expectations":       r.Expectations,
		"academic_load":      r.AcademicLoad,
	}
}

// ScheduleRequest creates a weekly schedule block.
type ScheduleRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
}

// Validate checks the schedule block payload.
func (r *ScheduleRequest) Validate() error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if !validTimeOfDay(r.StartTime) || !validTimeOfDay(r.EndTime) {
		return ErrInvalidTimeOfDay
	}
	if r.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// ScheduleUpdateRequest carries a partial schedule update.
type ScheduleUpdateRequest struct {
	DayOfWeek *int    `json:"day_of_week,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Type      *string `json:"type,omitempty"`
	Title     *string `json:"title,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Validate checks the set fields.
func (r *ScheduleUpdateRequest) Validate() error {
	if r.DayOfWeek != nil && (*r.DayOfWeek < 0 || *r.DayOfWeek > 6) {
		return ErrInvalidDayOfWeek
	}
	if r.StartTime != nil && !validTimeOfDay(*r.StartTime) {
		return ErrInvalidTimeOfDay
	}
	if r.EndTime != nil && !validTimeOfDay(*r.EndTime) {
		return ErrInvalidTimeOfDay
	}
	return nil
}

// Apply copies the set fields onto the block.
func (r *ScheduleUpdateRequest) Apply(b *ScheduleBlock) {
	if r.DayOfWeek != nil {
		b.DayOfWeek = *r.DayOfWeek
	}
	if r.StartTime != nil {
		b.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		b.EndTime = *r.EndTime
	}
	if r.Type != nil {
		b.Type = *r.Type
	}
	if r.Title != nil {
		b.Title = *r.Title
	}
	if r.Notes != nil {
		b.Notes = *r.Notes
	}
}

// DiaryEntryRequest upserts the check-in for a date.
type DiaryEntryRequest struct {
	Date       string   `json:"date"`
	Mood       int      `json:"mood"`
	Energy     int      `json:"energy"`
	Stress     int      `json:"stress"`
	Notes      string   `json:"notes,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Validate checks the diary payload.
func (r *DiaryEntryRequest) Validate() error {
	if !validDate(r.Date) {
		return ErrInvalidDate
	}
	if !validScale(r.Mood) || !validScale(r.Energy) || !validScale(r.Stress) {
		return ErrInvalidScaleValue
	}
	return nil
}

// HabitRequest creates a habit.
type HabitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Frequency   string `json:"frequency"`
	Category    string `json:"category,omitempty"`
	TargetDays  []int  `json:"target_days,omitempty"`
}

// Validate checks the habit payload.
func (r *HabitRequest) Validate() error {
	if r.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// HabitUpdateRequest carries a partial habit update.
type HabitUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Frequency   *string `json:"frequency,omitempty"`
	Category    *string `json:"category,omitempty"`
	TargetDays  *[]int  `json:"target_days,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// Apply copies the set fields onto the habit.
func (r *HabitUpdateRequest) Apply(h *Habit) {
	if r.Title != nil {
		h.Title = *r.Title
	}
	if r.Description != nil {
		h.Description = *r.Description
	}
	if r.Frequency != nil {
		h.Frequency = *r.Frequency
	}
	if r.Category != nil {
		h.Category = *r.Category
	}
	if r.TargetDays != nil {
		h.TargetDays = *r.TargetDays
	}
	if r.Active != nil {
		h.Active = *r.Active
	}
}

// HabitTrackingRequest upserts a completion record for a date.
type HabitTrackingRequest struct {
	Completed bool   `json:"completed"`
	Date      string `json:"date"`
	Notes     string `json:"notes,omitempty"`
}

// Validate checks the tracking payload.
func (r *HabitTrackingRequest) Validate() error {
	if !validDate(r.Date) {
		return ErrInvalidDate
	}
	return nil
}

// SessionCompletionRequest records a finished guided session.
type SessionCompletionRequest struct {
	SessionType string `json:"session_type"`
	Duration    int    `json:"duration"`
	Rating      int    `json:"rating,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Validate checks the completion payload.
func (r *SessionCompletionRequest) Validate() error {
	if r.SessionType == "" {
		return ErrEmptyTitle
	}
	return nil
}

// SessionType is a catalog entry for the guided session library.
type SessionType struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

// AnalyticsEventRequest is a client telemetry event.
type AnalyticsEventRequest struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data,omitempty"`
}

// Validate checks the telemetry payload.
func (r *AnalyticsEventRequest) Validate() error {
	if r.EventType == "" {
		return ErrEmptyTitle
	}
	return nil
}

// ============ AI coach payloads ============

// DailyRecommendationRequest asks the agenda agent for recommendations on a
// date. UserID, when set, must match the authenticated caller.
type DailyRecommendationRequest struct {
	UserID              string `json:"user_id,omitempty"`
	Date                string `json:"date"`
	ForceRefresh        bool   `json:"force_refresh,omitempty"`
	IncludeCompetitions *bool  `json:"include_competitions,omitempty"`
	IncludeTraining     *bool  `json:"include_training,omitempty"`
}

// Validate checks the recommendation request.
func (r *DailyRecommendationRequest) Validate() error {
	if !validDate(r.Date) {
		return ErrInvalidDate
	}
	return nil
}

// DailyRecommendationResponse is the agenda agent's answer.
type DailyRecommendationResponse struct {
	Recommendations []string       `json:"recommendations"`
	Rationale       string         `json:"rationale,omitempty"`
	EventContext    []EventContext `json:"event_context"`
	Escalate        bool           `json:"escalate"`
	ModelVersion    string         `json:"model_version"`
}

// CoachChatMessage is one conversation turn supplied by the client.
type CoachChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// CoachChatRequest starts or continues a coach conversation.
type CoachChatRequest struct {
	UserID     string             `json:"user_id,omitempty"`
	ChatID     string             `json:"chat_id,omitempty"`
	Messages   []CoachChatMessage `json:"messages"`
	Tone       string             `json:"tone,omitempty"`
	TargetGoal string             `json:"target_goal,omitempty"`
}

// Validate checks the chat request.
func (r *CoachChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return ErrMissingMessages
	}
	for _, m := range r.Messages {
		if !IsValidChatRole(m.Role) {
			return ErrInvalidChatRole
		}
		if m.Content == "" {
			return ErrEmptyMessageBody
		}
	}
	return nil
}

// ChatStreamDelta is one NDJSON chunk of the streamed coach reply.
type ChatStreamDelta struct {
	ChatID   string `json:"chat_id"`
	Delta    string `json:"delta"`
	Finished bool   `json:"finished"`
}

// ChatStreamFinal is the terminal NDJSON object closing a streamed reply.
type ChatStreamFinal struct {
	ChatID     string `json:"chat_id"`
	Finished   bool   `json:"finished"`
	Escalate   bool   `json:"escalate"`
	HabitHint  string `json:"habit_hint,omitempty"`
	BookingURL string `json:"booking_url,omitempty"`
	Model      string `json:"model,omitempty"`
}

// HabitPlanItem is one habit suggested by the planner.
type HabitPlanItem struct {
	Title                string `json:"title"`
	RecommendedStartDate string `json:"recommended_start_date,omitempty"` // YYYY-MM-DD
	Frequency            string `json:"frequency"`
	Rationale            string `json:"rationale,omitempty"`
}

// HabitPlanResponse is the planner agent's answer.
type HabitPlanResponse struct {
	Habits  []HabitPlanItem `json:"habits"`
	Summary string          `json:"summary,omitempty"`
}

// HabitPlanRequest asks the planner agent for a plan.
type HabitPlanRequest struct {
	UserID    string         `json:"user_id,omitempty"`
	Timeframe string         `json:"timeframe,omitempty"` // free-form, defaults to "next 7 days"
	Context   map[string]any `json:"context,omitempty"`
}

// EscalationRequest asks for an escalation decision over stress signals.
type EscalationRequest struct {
	UserID  string         `json:"user_id,omitempty"`
	Context map[string]any `json:"context"`
	Reason  string         `json:"reason,omitempty"`
}

// Validate checks the escalation request.
func (r *EscalationRequest) Validate() error {
	if r.Context == nil {
		return ErrEmptyContext
	}
	return nil
}

// EscalationResponse is the decision surfaced to the caller.
type EscalationResponse struct {
	Escalate   bool   `json:"escalate"`
	BookingURL string `json:"booking_url,omitempty"`
	Message    string `json:"message,omitempty"`
}

// AdvisorRequest asks the advisor agent for a personalized recommendation
// built from the athlete's aggregated weekly state.
type AdvisorRequest struct {
	Context      string `json:"context,omitempty"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}

// ============ Aggregation results ============

// WeeklyLoad summarizes schedule hours per type.
type WeeklyLoad struct {
	AcademicHours float64 `json:"academic_hours"`
	TrainingHours float64 `json:"training_hours"`
	TotalHours    float64 `json:"total_hours"`
	LoadLevel     string  `json:"load_level"`
	BalanceRatio  float64 `json:"balance_ratio"`
}

// DiarySummary holds 7-day diary averages.
type DiarySummary struct {
	AvgMood      float64 `json:"avg_mood"`
	AvgEnergy    float64 `json:"avg_energy"`
	AvgStress    float64 `json:"avg_stress"`
	EntriesCount int     `json:"entries_count"`
	Trend        string  `json:"trend,omitempty"`
}

// HabitStat holds the completion rate of a habit over a window.
type HabitStat struct {
	HabitID        string  `json:"habit_id"`
	Title          string  `json:"title"`
	CompletionRate float64 `json:"completion_rate"`
	CompletedCount int     `json:"completed_count"`
	TotalDays      int     `json:"total_days"`
}

// AnalyticsSummary holds per-type event counts over a window.
type AnalyticsSummary struct {
	TotalEvents int            `json:"total_events"`
	EventCounts map[string]int `json:"event_counts"`
	PeriodDays  int            `json:"period_days"`
}
