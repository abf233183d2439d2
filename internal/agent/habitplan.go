package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/timeutil"
)

const habitPlanSystemPrompt = "Eres el agente planificador de hábitos de MindAthlete. Crea planes accionables, " +
	"máximo 5 hábitos, con título, fecha recomendada, frecuencia y racional. " +
	"Respeta el tier del usuario (free: prioriza 2 hábitos esenciales). " +
	`Responde en JSON coincidiendo con {"habits": [...], "summary": "..."}.`

// FreeTierHabitLimit caps plans for free-tier athletes after parsing,
// regardless of what the model returned.
const FreeTierHabitLimit = 2

// HabitPlanAgent produces short habit plans for a timeframe.
type HabitPlanAgent struct {
	completer genai.Completer
	useMock   bool
	now       clock
}

// NewHabitPlanAgent creates the planner agent. A nil completer forces mock
// mode.
func NewHabitPlanAgent(completer genai.Completer, useMock bool) *HabitPlanAgent {
	return &HabitPlanAgent{completer: completer, useMock: useMock || completer == nil, now: time.Now}
}

type habitPlanPayload struct {
	Timeframe string         `json:"timeframe"`
	Context   map[string]any `json:"context"`
	Tier      string         `json:"tier"`
}

type habitPlanOutput struct {
	Habits []struct {
		Title                string `json:"title"`
		RecommendedStartDate string `json:"recommended_start_date"`
		Frequency            string `json:"frequency"`
		Rationale            string `json:"rationale"`
	} `json:"habits"`
	Summary string `json:"summary"`
}

// Generate asks the model for a habit plan. Free-tier plans are truncated to
// FreeTierHabitLimit items after parsing. Failures yield a minimal one-habit
// fallback plan.
func (a *HabitPlanAgent) Generate(ctx context.Context, timeframe string, planContext map[string]any, tier models.SubscriptionTier) models.HabitPlanResponse {
	if timeframe == "" {
		timeframe = "next 7 days"
	}
	if planContext == nil {
		planContext = map[string]any{}
	}

	var plan models.HabitPlanResponse
	if a.useMock {
		plan = a.mockPlan()
	} else {
		plan = a.completePlan(ctx, timeframe, planContext, tier)
	}
	if tier == models.TierFree && len(plan.Habits) > FreeTierHabitLimit {
		plan.Habits = plan.Habits[:FreeTierHabitLimit]
	}
	return plan
}

func (a *HabitPlanAgent) completePlan(ctx context.Context, timeframe string, planContext map[string]any, tier models.SubscriptionTier) models.HabitPlanResponse {
	body, err := json.Marshal(habitPlanPayload{Timeframe: timeframe, Context: planContext, Tier: string(tier)})
	if err != nil {
		slog.Error("HabitPlanAgent.Generate: failed to marshal payload", "error", err)
		return a.fallbackPlan()
	}
	content, err := a.completer.Complete(ctx, habitPlanSystemPrompt, []genai.Turn{{Role: models.ChatRoleUser, Content: string(body)}})
	if err != nil {
		slog.Error("HabitPlanAgent.Generate: completion failed", "error", err)
		return a.fallbackPlan()
	}

	var out habitPlanOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		slog.Warn("HabitPlanAgent.Generate: model returned non-JSON content, using fallback")
		return a.fallbackPlan()
	}
	habits := make([]models.HabitPlanItem, 0, len(out.Habits))
	for _, item := range out.Habits {
		title := item.Title
		if title == "" {
			title = "Hábito"
		}
		frequency := item.Frequency
		if frequency == "" {
			frequency = "daily"
		}
		startDate := ""
		if parsed, ok := timeutil.ParseTimestamp(item.RecommendedStartDate); ok {
			startDate = parsed.Format(timeutil.DateLayout)
		}
		habits = append(habits, models.HabitPlanItem{
			Title:                title,
			RecommendedStartDate: startDate,
			Frequency:            frequency,
			Rationale:            item.Rationale,
		})
	}
	return models.HabitPlanResponse{Habits: habits, Summary: out.Summary}
}

func (a *HabitPlanAgent) mockPlan() models.HabitPlanResponse {
	today := a.now().UTC().Format(timeutil.DateLayout)
	inTwoDays := a.now().UTC().AddDate(0, 0, 2).Format(timeutil.DateLayout)
	return models.HabitPlanResponse{
		Habits: []models.HabitPlanItem{
			{Title: "Respiración 4-7-8", RecommendedStartDate: today, Frequency: "daily", Rationale: "Bajar activación pre-entrenamiento"},
			{Title: "Diario de gratitud", RecommendedStartDate: today, Frequency: "daily", Rationale: "Reforzar enfoque positivo"},
			{Title: "Visualización guiada", RecommendedStartDate: inTwoDays, Frequency: "3x week", Rationale: "Preparar competencias próximas"},
		},
		Summary: "Plan breve generado localmente por falta de modelo.",
	}
}

func (a *HabitPlanAgent) fallbackPlan() models.HabitPlanResponse {
	return models.HabitPlanResponse{
		Habits: []models.HabitPlanItem{
			{
				Title:                "Chequeo de respiración matutina",
				RecommendedStartDate: a.now().UTC().Format(timeutil.DateLayout),
				Frequency:            "daily",
				Rationale:            "Mantener estabilidad emocional",
			},
		},
		Summary: "No se pudo generar plan completo; sugerencia mínima.",
	}
}
