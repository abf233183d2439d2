package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MindAthlete/backend/internal/agenda"
	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/timeutil"
)

const recommendationSystemPrompt = "Eres el agente de agenda de MindAthlete. Tu tarea es analizar la agenda diaria, " +
	"detectar espacios libres y proponer recomendaciones breves, accionables y en español neutro. " +
	"Respeta el tier del usuario (free limitado, premium sin restricciones) y evita repetir sugerencias. " +
	"Responde únicamente en JSON con este formato: " +
	`{"recommendations": [strings], "rationale": "string", "event_context": [...], "escalate": boolean}. ` +
	"Incluye una recomendación que se ajuste a algún bloque libre cuando exista."

// RecommendationAgent produces daily agenda recommendations from the
// athlete's events and free slots.
type RecommendationAgent struct {
	completer genai.Completer
	useMock   bool
}

// NewRecommendationAgent creates the agenda agent. A nil completer forces
// mock mode.
func NewRecommendationAgent(completer genai.Completer, useMock bool) *RecommendationAgent {
	return &RecommendationAgent{completer: completer, useMock: useMock || completer == nil}
}

type recommendationPayload struct {
	Date      string                `json:"date"`
	Tier      string                `json:"tier"`
	Events    []models.EventContext `json:"events"`
	FreeSlots []freeSlotPayload     `json:"free_slots"`
}

type freeSlotPayload struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes int    `json:"minutes"`
}

type recommendationOutput struct {
	Recommendations []string              `json:"recommendations"`
	Rationale       string                `json:"rationale"`
	EventContext    []models.EventContext `json:"event_context"`
	Escalate        bool                  `json:"escalate"`
}

// Generate computes free slots for the target day and asks the model for
// recommendations. Mock mode and failures yield deterministic local content
// tagged with the corresponding version marker.
func (a *RecommendationAgent) Generate(ctx context.Context, targetDate time.Time, tier models.SubscriptionTier, events []models.Event) models.DailyRecommendationResponse {
	dayStart, dayEnd := timeutil.DayBounds(targetDate)
	slots := agenda.FreeSlots(events, dayStart, dayEnd)
	eventContext := buildEventContext(events, dayStart)

	if a.useMock {
		return a.mockResponse(tier, events, eventContext)
	}

	payload := recommendationPayload{
		Date:   targetDate.UTC().Format(timeutil.DateLayout),
		Tier:   string(tier),
		Events: eventContext,
	}
	for _, slot := range slots {
		payload.FreeSlots = append(payload.FreeSlots, freeSlotPayload{
			Start:   slot.Start.Format(time.RFC3339),
			End:     slot.End.Format(time.RFC3339),
			Minutes: slot.Minutes(),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("RecommendationAgent.Generate: failed to marshal payload", "error", err)
		return a.fallbackResponse(eventContext)
	}

	content, err := a.completer.Complete(ctx, recommendationSystemPrompt, []genai.Turn{{Role: models.ChatRoleUser, Content: string(body)}})
	if err != nil {
		slog.Error("RecommendationAgent.Generate: completion failed", "error", err)
		return a.fallbackResponse(eventContext)
	}

	var out recommendationOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		slog.Warn("RecommendationAgent.Generate: model returned non-JSON content, using fallback", "error", err)
		return a.fallbackResponse(eventContext)
	}
	resultContext := out.EventContext
	if len(resultContext) == 0 {
		resultContext = eventContext
	}
	return models.DailyRecommendationResponse{
		Recommendations: out.Recommendations,
		Rationale:       out.Rationale,
		EventContext:    resultContext,
		Escalate:        out.Escalate,
		ModelVersion:    a.completer.Model(),
	}
}

func (a *RecommendationAgent) mockResponse(tier models.SubscriptionTier, events []models.Event, eventContext []models.EventContext) models.DailyRecommendationResponse {
	recommendations := []string{
		"Programa una respiración cuadrada de 4 minutos en tu primer bloque libre.",
		"Visualiza el entrenamiento clave del día y escribe un objetivo específico.",
	}
	for _, ev := range events {
		if ev.Kind == models.EventKindCompetition {
			recommendations = append(recommendations, "Prepara un ritual de precompetencia 60 minutos antes del evento.")
			break
		}
	}
	return models.DailyRecommendationResponse{
		Recommendations: recommendations,
		Rationale:       fmt.Sprintf("Basado en tu agenda y tier %s, priorizamos micro-recuperación y foco competitivo.", tier),
		EventContext:    eventContext,
		Escalate:        false,
		ModelVersion:    MockModelVersion,
	}
}

func (a *RecommendationAgent) fallbackResponse(eventContext []models.EventContext) models.DailyRecommendationResponse {
	return models.DailyRecommendationResponse{
		Recommendations: []string{
			"Reserva 5 minutos para una respiración 4-7-8 antes de tu próxima actividad.",
			"Escribe un objetivo SMART para tu sesión principal del día.",
		},
		Rationale:    "Falla temporal del modelo: usando heurísticas locales.",
		EventContext: eventContext,
		Escalate:     false,
		ModelVersion: FallbackModelVersion,
	}
}

func buildEventContext(events []models.Event, dayStart time.Time) []models.EventContext {
	ctx := make([]models.EventContext, 0, len(events))
	for _, ev := range events {
		start := ev.StartsAt
		if start.IsZero() {
			start = dayStart
		}
		end := ev.End()
		if end.IsZero() {
			end = start
		}
		ctx = append(ctx, models.EventContext{
			Title: ev.Title,
			Kind:  ev.Kind,
			Start: start.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			Notes: ev.Notes,
		})
	}
	return ctx
}
