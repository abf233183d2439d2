// Package store: in-memory backend.
//
// InMemoryStore implements Store over plain maps guarded by a mutex. It is
// used by handler and gating tests; semantics mirror the SQL backends,
// including upsert keys and list ordering.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MindAthlete/backend/internal/models"
)

type InMemoryStore struct {
	mu sync.RWMutex

	profiles     map[string]models.UserProfile
	schedules    map[string]models.ScheduleBlock
	diary        map[string]models.DiaryEntry // key: userID + "|" + date
	habits       map[string]models.Habit
	tracking     map[string]models.HabitTracking // key: habitID + "|" + date
	sessions     []models.SessionCompletion
	events       []models.Event
	entitlements []models.Entitlement
	chats        map[string]models.Chat
	messages     []models.ChatMessage
	habitPlans   []models.HabitPlanRecord
	escalations  []models.EscalationRecord
	recs         []models.RecommendationRecord
	aiRecs       []models.AIRecommendation
	analytics    []models.AnalyticsEvent
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles:  make(map[string]models.UserProfile),
		schedules: make(map[string]models.ScheduleBlock),
		diary:     make(map[string]models.DiaryEntry),
		habits:    make(map[string]models.Habit),
		tracking:  make(map[string]models.HabitTracking),
		chats:     make(map[string]models.Chat),
	}
}

func dateKey(a, b string) string { return a + "|" + b }

// ---- profiles ----

func (s *InMemoryStore) GetUserProfile(userID string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) SaveUserProfile(p models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// ---- schedules ----

func (s *InMemoryStore) ListScheduleBlocks(userID string) ([]models.ScheduleBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var blocks []models.ScheduleBlock
	for _, b := range s.schedules {
		if b.UserID == userID {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].DayOfWeek != blocks[j].DayOfWeek {
			return blocks[i].DayOfWeek < blocks[j].DayOfWeek
		}
		return blocks[i].StartTime < blocks[j].StartTime
	})
	return blocks, nil
}

func (s *InMemoryStore) GetScheduleBlock(id string) (*models.ScheduleBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.schedules[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *InMemoryStore) AddScheduleBlock(b models.ScheduleBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[b.ID] = b
	return nil
}

func (s *InMemoryStore) UpdateScheduleBlock(b models.ScheduleBlock) error {
	return s.AddScheduleBlock(b)
}

func (s *InMemoryStore) DeleteScheduleBlock(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.schedules, id)
	return nil
}

// ---- diary ----

func (s *InMemoryStore) ListDiaryEntries(userID string, limit int) ([]models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []models.DiaryEntry
	for _, e := range s.diary {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date > entries[j].Date })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryStore) ListDiaryEntriesSince(userID, date string) ([]models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []models.DiaryEntry
	for _, e := range s.diary {
		if e.UserID == userID && e.Date >= date {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries, nil
}

func (s *InMemoryStore) GetDiaryEntryByDate(userID, date string) (*models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.diary[dateKey(userID, date)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *InMemoryStore) SaveDiaryEntry(e models.DiaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dateKey(e.UserID, e.Date)
	if existing, ok := s.diary[key]; ok {
		// Upsert keeps the original row identity.
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	}
	s.diary[key] = e
	return nil
}

// ---- habits ----

func (s *InMemoryStore) ListHabits(userID string, activeOnly bool) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var habits []models.Habit
	for _, h := range s.habits {
		if h.UserID != userID {
			continue
		}
		if activeOnly && !h.Active {
			continue
		}
		habits = append(habits, h)
	}
	sort.Slice(habits, func(i, j int) bool { return habits[i].CreatedAt.Before(habits[j].CreatedAt) })
	return habits, nil
}

func (s *InMemoryStore) GetHabit(id string) (*models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.habits[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *InMemoryStore) AddHabit(h models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits[h.ID] = h
	return nil
}

func (s *InMemoryStore) UpdateHabit(h models.Habit) error {
	return s.AddHabit(h)
}

func (s *InMemoryStore) SaveHabitTracking(t models.HabitTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dateKey(t.HabitID, t.Date)
	if existing, ok := s.tracking[key]; ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	}
	s.tracking[key] = t
	return nil
}

func (s *InMemoryStore) ListHabitTrackingSince(userID, date string) ([]models.HabitTracking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []models.HabitTracking
	for _, t := range s.tracking {
		if t.UserID == userID && t.Date >= date {
			records = append(records, t)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records, nil
}

// ---- sessions ----

func (s *InMemoryStore) AddSessionCompletion(c models.SessionCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, c)
	return nil
}

func (s *InMemoryStore) ListSessionCompletions(userID string, limit int) ([]models.SessionCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var completions []models.SessionCompletion
	for _, c := range s.sessions {
		if c.UserID == userID {
			completions = append(completions, c)
		}
	}
	sort.Slice(completions, func(i, j int) bool { return completions[i].CompletedAt.After(completions[j].CompletedAt) })
	if limit > 0 && len(completions) > limit {
		completions = completions[:limit]
	}
	return completions, nil
}

// ---- events ----

func (s *InMemoryStore) AddEvent(e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *InMemoryStore) ListEventsBetween(userID string, start, end time.Time, kinds []models.EventKind) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []models.Event
	for _, e := range s.events {
		if e.UserID != userID || e.StartsAt.Before(start) || !e.StartsAt.Before(end) {
			continue
		}
		if len(kinds) > 0 && !containsKind(kinds, e.Kind) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events, nil
}

func containsKind(kinds []models.EventKind, kind models.EventKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ---- entitlements ----

func (s *InMemoryStore) AddEntitlement(e models.Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entitlements = append(s.entitlements, e)
	return nil
}

func (s *InMemoryStore) ActiveEntitlements(userID string) ([]models.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []models.Entitlement
	for _, e := range s.entitlements {
		if e.UserID == userID && e.Active {
			active = append(active, e)
		}
	}
	return active, nil
}

// ---- chats ----

func (s *InMemoryStore) GetActiveChat(userID string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Chat
	for id := range s.chats {
		c := s.chats[id]
		if c.UserID != userID || !c.IsActive {
			continue
		}
		if latest == nil || c.LastMessageAt.After(latest.LastMessageAt) {
			latest = &c
		}
	}
	return latest, nil
}

func (s *InMemoryStore) SaveChat(c models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[c.ID] = c
	return nil
}

func (s *InMemoryStore) AddChatMessage(m models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

func (s *InMemoryStore) CountUserMessagesSince(userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, m := range s.messages {
		if m.UserID == userID && m.Role == models.ChatRoleUser && !m.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) DeleteChatMessagesBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	var deleted int64
	for _, m := range s.messages {
		if m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return deleted, nil
}

// ---- habit plans ----

func (s *InMemoryStore) AddHabitPlan(p models.HabitPlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habitPlans = append(s.habitPlans, p)
	return nil
}

func (s *InMemoryStore) HasRecentAIHabitPlan(userID string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.habitPlans {
		if p.UserID == userID && strings.EqualFold(p.Source, "AI") && !p.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// ---- escalations and recommendations ----

func (s *InMemoryStore) AddEscalation(r models.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, r)
	return nil
}

func (s *InMemoryStore) AddRecommendation(r models.RecommendationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, r)
	return nil
}

func (s *InMemoryStore) AddAIRecommendation(r models.AIRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiRecs = append(s.aiRecs, r)
	return nil
}

func (s *InMemoryStore) LatestAIRecommendation(userID string) (*models.AIRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.AIRecommendation
	for i := range s.aiRecs {
		r := s.aiRecs[i]
		if r.UserID != userID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = &r
		}
	}
	return latest, nil
}

// ---- analytics ----

func (s *InMemoryStore) AddAnalyticsEvent(e models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analytics = append(s.analytics, e)
	return nil
}

func (s *InMemoryStore) CountAnalyticsEventsSince(userID string, since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range s.analytics {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			counts[e.EventType]++
		}
	}
	return counts, nil
}

// Escalations returns every stored escalation record. Test helper.
func (s *InMemoryStore) Escalations() []models.EscalationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.EscalationRecord(nil), s.escalations...)
}

// ChatMessages returns every stored chat message. Test helper.
func (s *InMemoryStore) ChatMessages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

// HabitPlans returns every stored habit plan record. Test helper.
func (s *InMemoryStore) HabitPlans() []models.HabitPlanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HabitPlanRecord(nil), s.habitPlans...)
}

// Recommendations returns every stored recommendation audit record. Test
// helper.
func (s *InMemoryStore) Recommendations() []models.RecommendationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RecommendationRecord(nil), s.recs...)
}

func (s *InMemoryStore) Close() error { return nil }
