package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/models"
)

const advisorSystemPrompt = "Eres un coach de bienestar mental empático y profesional especializado en deportistas " +
	"universitarios. Tus recomendaciones son personalizadas, accionables y motivadoras."

// AdvisorInput aggregates the athlete's weekly state for the advisor prompt.
type AdvisorInput struct {
	Profile             *models.UserProfile
	Load                models.WeeklyLoad
	Diary               models.DiarySummary
	HabitCompletionRate float64
	ExtraContext        string
}

// AdvisorAgent produces a free-form personalized recommendation from the
// athlete's aggregated profile, load, mood and habit data.
type AdvisorAgent struct {
	completer genai.Completer
	useMock   bool
}

// NewAdvisorAgent creates the advisor agent. A nil completer forces mock
// mode.
func NewAdvisorAgent(completer genai.Completer, useMock bool) *AdvisorAgent {
	return &AdvisorAgent{completer: completer, useMock: useMock || completer == nil}
}

// Generate builds the coaching prompt and returns the recommendation text
// and the model tag it was produced with.
func (a *AdvisorAgent) Generate(ctx context.Context, in AdvisorInput) (string, string, error) {
	if a.useMock {
		return a.mockRecommendation(in), MockModelVersion, nil
	}
	content, err := a.completer.Complete(ctx, advisorSystemPrompt, []genai.Turn{
		{Role: models.ChatRoleUser, Content: buildAdvisorPrompt(in)},
	})
	if err != nil {
		slog.Error("AdvisorAgent.Generate: completion failed", "error", err)
		return "", "", err
	}
	return content, a.completer.Model(), nil
}

func (a *AdvisorAgent) mockRecommendation(in AdvisorInput) string {
	sport := "deportista"
	if in.Profile != nil && in.Profile.Sport != "" {
		sport = in.Profile.Sport
	}
	return fmt.Sprintf(
		"Hola. Como %s con una carga de %.1f horas semanales, esta semana prioriza la recuperación.\n\n"+
			"Pasos recomendados:\n"+
			"1. Agenda una respiración cuadrada de 4 minutos después de tu entrenamiento principal.\n"+
			"2. Registra tu estado de ánimo cada noche en el diario.\n"+
			"3. Revisa tu hábito con menor cumplimiento y reduce su alcance a la mitad.\n\n"+
			"Pequeños ajustes sostenidos construyen grandes temporadas.",
		sport, in.Load.TotalHours)
}

func buildAdvisorPrompt(in AdvisorInput) string {
	sport, level := "deportista", "universitario"
	var goals, stressFactors []string
	if in.Profile != nil {
		if in.Profile.Sport != "" {
			sport = in.Profile.Sport
		}
		if in.Profile.Level != "" {
			level = in.Profile.Level
		}
		goals = in.Profile.Goals
		stressFactors = in.Profile.StressFactors
	}
	goalsText := "mejorar rendimiento general"
	if len(goals) > 0 {
		goalsText = strings.Join(goals, ", ")
	}
	stressText := "carga académica y competitiva"
	if len(stressFactors) > 0 {
		stressText = strings.Join(stressFactors, ", ")
	}
	extra := in.ExtraContext
	if extra == "" {
		extra = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Eres un coach de bienestar mental especializado en deportistas universitarios.\n\n")
	fmt.Fprintf(&b, "Perfil del atleta:\n- Deporte: %s\n- Nivel: %s\n- Objetivos: %s\n- Factores de estrés: %s\n\n", sport, level, goalsText, stressText)
	fmt.Fprintf(&b, "Carga semanal actual:\n- Horas totales: %.1f horas\n- Entrenamiento: %.1f horas\n- Académico: %.1f horas\n- Nivel de carga: %s\n\n",
		in.Load.TotalHours, in.Load.TrainingHours, in.Load.AcademicHours, loadDescriptor(in.Load.TotalHours))
	fmt.Fprintf(&b, "Estado emocional (última semana):\n- Ánimo promedio: %.1f/5\n- Energía promedio: %.1f/5\n- Estrés promedio: %.1f/5\n- Tendencia: %s\n\n",
		in.Diary.AvgMood, in.Diary.AvgEnergy, in.Diary.AvgStress, trendDescriptor(in.Diary.AvgMood))
	fmt.Fprintf(&b, "Hábitos:\n- Tasa de cumplimiento: %.1f%%\n\n", in.HabitCompletionRate)
	fmt.Fprintf(&b, "Contexto adicional: %s\n\n", extra)
	b.WriteString("Genera una recomendación personalizada que:\n" +
		"1. Sea empática y motivadora\n" +
		"2. Considere su carga actual y estado emocional\n" +
		"3. Proporcione 3 pasos concretos y accionables\n" +
		"4. Sea breve (máximo 150 palabras)\n" +
		"5. Incluya una referencia específica a su deporte o situación actual")
	return b.String()
}

func loadDescriptor(totalHours float64) string {
	switch {
	case totalHours > 40:
		return "alto"
	case totalHours > 30:
		return "moderado"
	default:
		return "equilibrado"
	}
}

func trendDescriptor(avgMood float64) string {
	switch {
	case avgMood > 3.5:
		return "positiva"
	case avgMood > 2.5:
		return "estable"
	default:
		return "requiere atención"
	}
}
