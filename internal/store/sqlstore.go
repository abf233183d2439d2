// Package store: shared database/sql implementation.
//
// Both persistent backends run the same queries. Placeholders use the $n
// style, which lib/pq requires and go-sqlite3 binds positionally in order of
// appearance, so a single dialect serves both drivers.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MindAthlete/backend/internal/models"
)

type sqlStore struct {
	db *sql.DB
}

// ---- profiles ----

func (s *sqlStore) GetUserProfile(userID string) (*models.UserProfile, error) {
	query := `SELECT user_id, email, full_name, sport, level, goals, stress_factors,
		training_frequency, questionnaire_data, questionnaire_completed_at, created_at, updated_at
		FROM user_profiles WHERE user_id = $1`

	var p models.UserProfile
	var email, fullName, sport, level, goals, stressFactors, questionnaire sql.NullString
	var completedAt sql.NullTime
	err := s.db.QueryRow(query, userID).Scan(
		&p.UserID, &email, &fullName, &sport, &level, &goals, &stressFactors,
		&p.TrainingFrequency, &questionnaire, &completedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("store.GetUserProfile failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	p.Email = email.String
	p.FullName = fullName.String
	p.Sport = sport.String
	p.Level = level.String
	p.Goals = decodeStringSlice(goals)
	p.StressFactors = decodeStringSlice(stressFactors)
	p.QuestionnaireData = decodeMap(questionnaire)
	if completedAt.Valid {
		t := completedAt.Time
		p.QuestionnaireCompletedAt = &t
	}
	return &p, nil
}

func (s *sqlStore) SaveUserProfile(p models.UserProfile) error {
	goals, err := jsonColumn(p.Goals)
	if err != nil {
		return fmt.Errorf("failed to encode goals: %w", err)
	}
	stressFactors, err := jsonColumn(p.StressFactors)
	if err != nil {
		return fmt.Errorf("failed to encode stress factors: %w", err)
	}
	questionnaire, err := jsonColumn(p.QuestionnaireData)
	if err != nil {
		return fmt.Errorf("failed to encode questionnaire data: %w", err)
	}
	var completedAt any
	if p.QuestionnaireCompletedAt != nil {
		completedAt = *p.QuestionnaireCompletedAt
	}

	query := `INSERT INTO user_profiles (user_id, email, full_name, sport, level, goals,
		stress_factors, training_frequency, questionnaire_data, questionnaire_completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			sport = EXCLUDED.sport,
			level = EXCLUDED.level,
			goals = EXCLUDED.goals,
			stress_factors = EXCLUDED.stress_factors,
			training_frequency = EXCLUDED.training_frequency,
			questionnaire_data = EXCLUDED.questionnaire_data,
			questionnaire_completed_at = EXCLUDED.questionnaire_completed_at,
			updated_at = EXCLUDED.updated_at`

	_, err = s.db.Exec(query, p.UserID, nilIfEmpty(p.Email), nilIfEmpty(p.FullName),
		nilIfEmpty(p.Sport), nilIfEmpty(p.Level), goals, stressFactors,
		p.TrainingFrequency, questionnaire, completedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("store.SaveUserProfile failed", "error", err, "user_id", p.UserID)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// ---- schedules ----

const scheduleColumns = "id, user_id, day_of_week, start_time, end_time, type, title, notes, created_at, updated_at"

func scanScheduleBlock(rows *sql.Rows) (models.ScheduleBlock, error) {
	var b models.ScheduleBlock
	var notes sql.NullString
	err := rows.Scan(&b.ID, &b.UserID, &b.DayOfWeek, &b.StartTime, &b.EndTime,
		&b.Type, &b.Title, &notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, fmt.Errorf("failed to scan schedule row: %w", err)
	}
	b.Notes = notes.String
	return b, nil
}

func (s *sqlStore) ListScheduleBlocks(userID string) ([]models.ScheduleBlock, error) {
	rows, err := s.db.Query(`SELECT `+scheduleColumns+` FROM schedules
		WHERE user_id = $1 ORDER BY day_of_week, start_time`, userID)
	if err != nil {
		slog.Error("store.ListScheduleBlocks query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var blocks []models.ScheduleBlock
	for rows.Next() {
		b, err := scanScheduleBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *sqlStore) GetScheduleBlock(id string) (*models.ScheduleBlock, error) {
	var b models.ScheduleBlock
	var notes sql.NullString
	err := s.db.QueryRow(`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id).Scan(
		&b.ID, &b.UserID, &b.DayOfWeek, &b.StartTime, &b.EndTime,
		&b.Type, &b.Title, &notes, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("store.GetScheduleBlock failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	b.Notes = notes.String
	return &b, nil
}

func (s *sqlStore) AddScheduleBlock(b models.ScheduleBlock) error {
	_, err := s.db.Exec(`INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.UserID, b.DayOfWeek, b.StartTime, b.EndTime, b.Type, b.Title,
		nilIfEmpty(b.Notes), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		slog.Error("store.AddScheduleBlock failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (s *sqlStore) UpdateScheduleBlock(b models.ScheduleBlock) error {
	_, err := s.db.Exec(`UPDATE schedules SET day_of_week = $1, start_time = $2, end_time = $3,
		type = $4, title = $5, notes = $6, updated_at = $7 WHERE id = $8`,
		b.DayOfWeek, b.StartTime, b.EndTime, b.Type, b.Title, nilIfEmpty(b.Notes), b.UpdatedAt, b.ID)
	if err != nil {
		slog.Error("store.UpdateScheduleBlock failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

func (s *sqlStore) DeleteScheduleBlock(id string) error {
	_, err := s.db.Exec(`DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		slog.Error("store.DeleteScheduleBlock failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// ---- diary ----

const diaryColumns = "id, user_id, entry_date, mood, energy, stress, notes, highlights, created_at, updated_at"

func scanDiaryEntry(rows *sql.Rows) (models.DiaryEntry, error) {
	var e models.DiaryEntry
	var notes, highlights sql.NullString
	err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Mood, &e.Energy, &e.Stress,
		&notes, &highlights, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan diary row: %w", err)
	}
	e.Notes = notes.String
	e.Highlights = decodeStringSlice(highlights)
	return e, nil
}

func (s *sqlStore) ListDiaryEntries(userID string, limit int) ([]models.DiaryEntry, error) {
	rows, err := s.db.Query(`SELECT `+diaryColumns+` FROM diary_entries
		WHERE user_id = $1 ORDER BY entry_date DESC LIMIT $2`, userID, limit)
	if err != nil {
		slog.Error("store.ListDiaryEntries query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query diary entries: %w", err)
	}
	defer rows.Close()
	return collectDiaryEntries(rows)
}

func (s *sqlStore) ListDiaryEntriesSince(userID, date string) ([]models.DiaryEntry, error) {
	rows, err := s.db.Query(`SELECT `+diaryColumns+` FROM diary_entries
		WHERE user_id = $1 AND entry_date >= $2 ORDER BY entry_date`, userID, date)
	if err != nil {
		slog.Error("store.ListDiaryEntriesSince query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query diary entries: %w", err)
	}
	defer rows.Close()
	return collectDiaryEntries(rows)
}

func collectDiaryEntries(rows *sql.Rows) ([]models.DiaryEntry, error) {
	var entries []models.DiaryEntry
	for rows.Next() {
		e, err := scanDiaryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *sqlStore) GetDiaryEntryByDate(userID, date string) (*models.DiaryEntry, error) {
	var e models.DiaryEntry
	var notes, highlights sql.NullString
	err := s.db.QueryRow(`SELECT `+diaryColumns+` FROM diary_entries
		WHERE user_id = $1 AND entry_date = $2`, userID, date).Scan(
		&e.ID, &e.UserID, &e.Date, &e.Mood, &e.Energy, &e.Stress,
		&notes, &highlights, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("store.GetDiaryEntryByDate failed", "error", err, "user_id", userID, "date", date)
		return nil, fmt.Errorf("failed to query diary entry: %w", err)
	}
	e.Notes = notes.String
	e.Highlights = decodeStringSlice(highlights)
	return &e, nil
}

func (s *sqlStore) SaveDiaryEntry(e models.DiaryEntry) error {
	highlights, err := jsonColumn(e.Highlights)
	if err != nil {
		return fmt.Errorf("failed to encode highlights: %w", err)
	}
	query := `INSERT INTO diary_entries (` + diaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			mood = EXCLUDED.mood,
			energy = EXCLUDED.energy,
			stress = EXCLUDED.stress,
			notes = EXCLUDED.notes,
			highlights = EXCLUDED.highlights,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, e.ID, e.UserID, e.Date, e.Mood, e.Energy, e.Stress,
		nilIfEmpty(e.Notes), highlights, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		slog.Error("store.SaveDiaryEntry failed", "error", err, "user_id", e.UserID, "date", e.Date)
		return fmt.Errorf("failed to save diary entry: %w", err)
	}
	return nil
}

// ---- habits ----

const habitColumns = "id, user_id, title, description, frequency, category, target_days, active, created_at, updated_at"

func scanHabit(rows *sql.Rows) (models.Habit, error) {
	var h models.Habit
	var description, category, targetDays sql.NullString
	err := rows.Scan(&h.ID, &h.UserID, &h.Title, &description, &h.Frequency,
		&category, &targetDays, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return h, fmt.Errorf("failed to scan habit row: %w", err)
	}
	h.Description = description.String
	h.Category = category.String
	h.TargetDays = decodeIntSlice(targetDays)
	return h, nil
}

func (s *sqlStore) ListHabits(userID string, activeOnly bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at`
	rows, err := s.db.Query(query, userID)
	if err != nil {
		slog.Error("store.ListHabits query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *sqlStore) GetHabit(id string) (*models.Habit, error) {
	var h models.Habit
	var description, category, targetDays sql.NullString
	err := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE id = $1`, id).Scan(
		&h.ID, &h.UserID, &h.Title, &description, &h.Frequency,
		&category, &targetDays, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("store.GetHabit failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query habit: %w", err)
	}
	h.Description = description.String
	h.Category = category.String
	h.TargetDays = decodeIntSlice(targetDays)
	return &h, nil
}

func (s *sqlStore) AddHabit(h models.Habit) error {
	targetDays, err := jsonColumn(h.TargetDays)
	if err != nil {
		return fmt.Errorf("failed to encode target days: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO habits (`+habitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		h.ID, h.UserID, h.Title, nilIfEmpty(h.Description), h.Frequency,
		nilIfEmpty(h.Category), targetDays, h.Active, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		slog.Error("store.AddHabit failed", "error", err, "id", h.ID)
		return fmt.Errorf("failed to insert habit: %w", err)
	}
	return nil
}

func (s *sqlStore) UpdateHabit(h models.Habit) error {
	targetDays, err := jsonColumn(h.TargetDays)
	if err != nil {
		return fmt.Errorf("failed to encode target days: %w", err)
	}
	_, err = s.db.Exec(`UPDATE habits SET title = $1, description = $2, frequency = $3,
		category = $4, target_days = $5, active = $6, updated_at = $7 WHERE id = $8`,
		h.Title, nilIfEmpty(h.Description), h.Frequency, nilIfEmpty(h.Category),
		targetDays, h.Active, h.UpdatedAt, h.ID)
	if err != nil {
		slog.Error("store.UpdateHabit failed", "error", err, "id", h.ID)
		return fmt.Errorf("failed to update habit: %w", err)
	}
	return nil
}

func (s *sqlStore) SaveHabitTracking(t models.HabitTracking) error {
	query := `INSERT INTO habit_tracking (id, habit_id, user_id, tracking_date, completed, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (habit_id, tracking_date) DO UPDATE SET
			completed = EXCLUDED.completed,
			notes = EXCLUDED.notes`
	_, err := s.db.Exec(query, t.ID, t.HabitID, t.UserID, t.Date, t.Completed,
		nilIfEmpty(t.Notes), t.CreatedAt)
	if err != nil {
		slog.Error("store.SaveHabitTracking failed", "error", err, "habit_id", t.HabitID, "date", t.Date)
		return fmt.Errorf("failed to save habit tracking: %w", err)
	}
	return nil
}

func (s *sqlStore) ListHabitTrackingSince(userID, date string) ([]models.HabitTracking, error) {
	rows, err := s.db.Query(`SELECT id, habit_id, user_id, tracking_date, completed, notes, created_at
		FROM habit_tracking WHERE user_id = $1 AND tracking_date >= $2 ORDER BY tracking_date`, userID, date)
	if err != nil {
		slog.Error("store.ListHabitTrackingSince query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query habit tracking: %w", err)
	}
	defer rows.Close()

	var records []models.HabitTracking
	for rows.Next() {
		var t models.HabitTracking
		var notes sql.NullString
		if err := rows.Scan(&t.ID, &t.HabitID, &t.UserID, &t.Date, &t.Completed, &notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracking row: %w", err)
		}
		t.Notes = notes.String
		records = append(records, t)
	}
	return records, rows.Err()
}

// ---- sessions ----

func (s *sqlStore) AddSessionCompletion(c models.SessionCompletion) error {
	_, err := s.db.Exec(`INSERT INTO session_completions (id, user_id, session_type, duration, rating, notes, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.SessionType, c.Duration, c.Rating, nilIfEmpty(c.Notes), c.CompletedAt)
	if err != nil {
		slog.Error("store.AddSessionCompletion failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert session completion: %w", err)
	}
	return nil
}

func (s *sqlStore) ListSessionCompletions(userID string, limit int) ([]models.SessionCompletion, error) {
	rows, err := s.db.Query(`SELECT id, user_id, session_type, duration, rating, notes, completed_at
		FROM session_completions WHERE user_id = $1 ORDER BY completed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		slog.Error("store.ListSessionCompletions query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query session completions: %w", err)
	}
	defer rows.Close()

	var completions []models.SessionCompletion
	for rows.Next() {
		var c models.SessionCompletion
		var rating sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.SessionType, &c.Duration, &rating, &notes, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		c.Rating = int(rating.Int64)
		c.Notes = notes.String
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// ---- events ----

func (s *sqlStore) AddEvent(e models.Event) error {
	var endsAt any
	if e.EndsAt != nil {
		endsAt = *e.EndsAt
	}
	_, err := s.db.Exec(`INSERT INTO events (id, user_id, title, kind, starts_at, ends_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Title, string(e.Kind), e.StartsAt, endsAt, nilIfEmpty(e.Notes))
	if err != nil {
		slog.Error("store.AddEvent failed", "error", err, "id", e.ID)
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *sqlStore) ListEventsBetween(userID string, start, end time.Time, kinds []models.EventKind) ([]models.Event, error) {
	query := `SELECT id, user_id, title, kind, starts_at, ends_at, notes FROM events
		WHERE user_id = $1 AND starts_at >= $2 AND starts_at < $3`
	args := []any{userID, start, end}
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, kind := range kinds {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, string(kind))
		}
		query += ` AND kind IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY starts_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("store.ListEventsBetween query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var kind string
		var endsAt sql.NullTime
		var notes sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &kind, &e.StartsAt, &endsAt, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Kind = models.EventKind(kind)
		if endsAt.Valid {
			t := endsAt.Time
			e.EndsAt = &t
		}
		e.Notes = notes.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// ---- entitlements ----

func (s *sqlStore) AddEntitlement(e models.Entitlement) error {
	_, err := s.db.Exec(`INSERT INTO entitlements (id, user_id, product, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`, e.ID, e.UserID, e.Product, e.Active, e.CreatedAt)
	if err != nil {
		slog.Error("store.AddEntitlement failed", "error", err, "id", e.ID)
		return fmt.Errorf("failed to insert entitlement: %w", err)
	}
	return nil
}

func (s *sqlStore) ActiveEntitlements(userID string) ([]models.Entitlement, error) {
	rows, err := s.db.Query(`SELECT id, user_id, product, active, created_at
		FROM entitlements WHERE user_id = $1 AND active`, userID)
	if err != nil {
		slog.Error("store.ActiveEntitlements query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query entitlements: %w", err)
	}
	defer rows.Close()

	var entitlements []models.Entitlement
	for rows.Next() {
		var e models.Entitlement
		if err := rows.Scan(&e.ID, &e.UserID, &e.Product, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement row: %w", err)
		}
		entitlements = append(entitlements, e)
	}
	return entitlements, rows.Err()
}

// ---- chats ----

func (s *sqlStore) GetActiveChat(userID string) (*models.Chat, error) {
	var c models.Chat
	var title sql.NullString
	err := s.db.QueryRow(`SELECT id, user_id, title, message_count, is_active, last_message_at, created_at, updated_at
		FROM chats WHERE user_id = $1 AND is_active ORDER BY last_message_at DESC LIMIT 1`, userID).Scan(
		&c.ID, &c.UserID, &title, &c.MessageCount, &c.IsActive, &c.LastMessageAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("store.GetActiveChat failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}
	c.Title = title.String
	return &c, nil
}

func (s *sqlStore) SaveChat(c models.Chat) error {
	query := `INSERT INTO chats (id, user_id, title, message_count, is_active, last_message_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			message_count = EXCLUDED.message_count,
			is_active = EXCLUDED.is_active,
			last_message_at = EXCLUDED.last_message_at,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(query, c.ID, c.UserID, nilIfEmpty(c.Title), c.MessageCount,
		c.IsActive, c.LastMessageAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		slog.Error("store.SaveChat failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

func (s *sqlStore) AddChatMessage(m models.ChatMessage) error {
	metadata, err := jsonColumn(m.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO chat_messages (id, chat_id, user_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ChatID, m.UserID, string(m.Role), m.Content, metadata, m.CreatedAt)
	if err != nil {
		slog.Error("store.AddChatMessage failed", "error", err, "chat_id", m.ChatID)
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

func (s *sqlStore) CountUserMessagesSince(userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chat_messages
		WHERE user_id = $1 AND role = $2 AND created_at >= $3`,
		userID, string(models.ChatRoleUser), since).Scan(&count)
	if err != nil {
		slog.Error("store.CountUserMessagesSince failed", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}

func (s *sqlStore) DeleteChatMessagesBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM chat_messages WHERE created_at < $1`, cutoff)
	if err != nil {
		slog.Error("store.DeleteChatMessagesBefore failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired chat messages: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted chat messages: %w", err)
	}
	return deleted, nil
}

// ---- habit plans ----

func (s *sqlStore) AddHabitPlan(p models.HabitPlanRecord) error {
	plan, err := jsonColumn(p.Plan)
	if err != nil {
		return fmt.Errorf("failed to encode habit plan: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO habit_plans (id, user_id, plan_json, summary, source, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, plan, nilIfEmpty(p.Summary), p.Source, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("store.AddHabitPlan failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert habit plan: %w", err)
	}
	return nil
}

func (s *sqlStore) HasRecentAIHabitPlan(userID string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM habit_plans
		WHERE user_id = $1 AND source = 'AI' AND created_at >= $2`, userID, since).Scan(&count)
	if err != nil {
		slog.Error("store.HasRecentAIHabitPlan failed", "error", err, "user_id", userID)
		return false, fmt.Errorf("failed to query habit plans: %w", err)
	}
	return count > 0, nil
}

// ---- escalations and recommendations ----

func (s *sqlStore) AddEscalation(r models.EscalationRecord) error {
	context, err := jsonColumn(r.Context)
	if err != nil {
		return fmt.Errorf("failed to encode escalation context: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO escalations (id, user_id, reason, context, status, booking_url, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, r.Reason, context, r.Status, nilIfEmpty(r.BookingURL),
		nilIfEmpty(r.Source), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		slog.Error("store.AddEscalation failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert escalation: %w", err)
	}
	return nil
}

func (s *sqlStore) AddRecommendation(r models.RecommendationRecord) error {
	reason, err := jsonColumn(r.Reason)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation reason: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO recommendations (id, user_id, context, reason, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.UserID, nilIfEmpty(r.Context), reason, nilIfEmpty(r.Message), r.CreatedAt)
	if err != nil {
		slog.Error("store.AddRecommendation failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}

func (s *sqlStore) AddAIRecommendation(r models.AIRecommendation) error {
	context, err := jsonColumn(r.Context)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation context: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO ai_recommendations (id, user_id, recommendation, context, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.UserID, r.Recommendation, context, r.Model, r.CreatedAt)
	if err != nil {
		slog.Error("store.AddAIRecommendation failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert AI recommendation: %w", err)
	}
	return nil
}

func (s *sqlStore) LatestAIRecommendation(userID string) (*models.AIRecommendation, error) {
	var r models.AIRecommendation
	var context sql.NullString
	err := s.db.QueryRow(`SELECT id, user_id, recommendation, context, model, created_at
		FROM ai_recommendations WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID).Scan(
		&r.ID, &r.UserID, &r.Recommendation, &context, &r.Model, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("store.LatestAIRecommendation failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query AI recommendations: %w", err)
	}
	r.Context = decodeMap(context)
	return &r, nil
}

// ---- analytics ----

func (s *sqlStore) AddAnalyticsEvent(e models.AnalyticsEvent) error {
	data, err := jsonColumn(e.EventData)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO analytics_events (id, user_id, event_type, event_data, event_time)
		VALUES ($1, $2, $3, $4, $5)`, e.ID, e.UserID, e.EventType, data, e.Timestamp)
	if err != nil {
		slog.Error("store.AddAnalyticsEvent failed", "error", err, "id", e.ID)
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

func (s *sqlStore) CountAnalyticsEventsSince(userID string, since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT event_type, COUNT(*) FROM analytics_events
		WHERE user_id = $1 AND event_time >= $2 GROUP BY event_type`, userID, since)
	if err != nil {
		slog.Error("store.CountAnalyticsEventsSince query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}
		counts[eventType] = count
	}
	return counts, rows.Err()
}

// Close closes the underlying database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
