package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/models"
)

var targetDate = time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)

func trainingEvent(startHour, endHour int) models.Event {
	end := time.Date(2024, 11, 5, endHour, 0, 0, 0, time.UTC)
	return models.Event{
		Title:    "Entrenamiento",
		Kind:     models.EventKindTraining,
		StartsAt: time.Date(2024, 11, 5, startHour, 0, 0, 0, time.UTC),
		EndsAt:   &end,
	}
}

func TestRecommendationMockModeDeterministic(t *testing.T) {
	a := NewRecommendationAgent(nil, true)
	events := []models.Event{trainingEvent(9, 11)}
	first := a.Generate(context.Background(), targetDate, models.TierFree, events)
	second := a.Generate(context.Background(), targetDate, models.TierFree, events)
	if !reflect.DeepEqual(first, second) {
		t.Error("mock mode must be deterministic for identical input")
	}
	if first.ModelVersion != MockModelVersion {
		t.Errorf("model version = %q, want %q", first.ModelVersion, MockModelVersion)
	}
	if len(first.Recommendations) != 2 {
		t.Errorf("expected 2 base recommendations, got %d", len(first.Recommendations))
	}
	if first.Escalate {
		t.Error("mock recommendations never escalate")
	}
}

func TestRecommendationMockAddsCompetitionRitual(t *testing.T) {
	a := NewRecommendationAgent(nil, true)
	events := []models.Event{
		trainingEvent(9, 11),
		{Title: "Final regional", Kind: models.EventKindCompetition, StartsAt: time.Date(2024, 11, 5, 16, 0, 0, 0, time.UTC)},
	}
	resp := a.Generate(context.Background(), targetDate, models.TierPremium, events)
	if len(resp.Recommendations) != 3 {
		t.Fatalf("expected competition ritual appended, got %v", resp.Recommendations)
	}
}

func TestRecommendationParsesModelOutput(t *testing.T) {
	mock := &genai.Mock{
		Response:  `{"recommendations": ["Haz pausas activas"], "rationale": "agenda ligera", "escalate": true}`,
		ModelName: "gpt-4o-mini",
	}
	a := NewRecommendationAgent(mock, false)
	resp := a.Generate(context.Background(), targetDate, models.TierPremium, []models.Event{trainingEvent(9, 11)})
	if len(resp.Recommendations) != 1 || resp.Recommendations[0] != "Haz pausas activas" {
		t.Errorf("recommendations = %v", resp.Recommendations)
	}
	if resp.Rationale != "agenda ligera" || !resp.Escalate {
		t.Errorf("rationale/escalate not parsed: %+v", resp)
	}
	if resp.ModelVersion != "gpt-4o-mini" {
		t.Errorf("model version = %q", resp.ModelVersion)
	}
	// The model omitted event_context, so the locally built one is echoed.
	if len(resp.EventContext) != 1 || resp.EventContext[0].Title != "Entrenamiento" {
		t.Errorf("event context not echoed: %v", resp.EventContext)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("expected one completion call, got %d", len(mock.Calls))
	}
}

func TestRecommendationFallbackOnCallFailure(t *testing.T) {
	mock := &genai.Mock{Err: errors.New("rate limited")}
	a := NewRecommendationAgent(mock, false)
	resp := a.Generate(context.Background(), targetDate, models.TierFree, nil)
	if resp.ModelVersion != FallbackModelVersion {
		t.Errorf("model version = %q, want %q", resp.ModelVersion, FallbackModelVersion)
	}
	if len(resp.Recommendations) != 2 || resp.Escalate {
		t.Errorf("unexpected fallback payload: %+v", resp)
	}
}

func TestRecommendationFallbackOnMalformedOutput(t *testing.T) {
	mock := &genai.Mock{Response: "lo siento, no puedo responder en JSON"}
	a := NewRecommendationAgent(mock, false)
	resp := a.Generate(context.Background(), targetDate, models.TierFree, nil)
	if resp.ModelVersion != FallbackModelVersion {
		t.Errorf("malformed output must produce fallback, got %q", resp.ModelVersion)
	}
}
