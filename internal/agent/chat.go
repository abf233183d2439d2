package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/privacy"
)

const chatSystemPromptFormat = "Eres Kai, el coach IA de MindAthlete con formación en psicología deportiva. " +
	"Adopta un tono %s y evita diagnósticos clínicos. " +
	"Proporciona estrategias concretas, referencias a rutinas de la app y refuerza la autonomía del atleta. " +
	"Siempre responde en JSON plano y válido con esta estructura exacta: " +
	`{"reply": "texto motivacional y práctico", "escalate": false, "habit_hint": "opcional"}. ` +
	`Si no puedes cumplir la solicitud, indica un mensaje empático y marca "escalate": false.`

// DefaultTone is applied when the client does not request one.
const DefaultTone = "empathetic"

// ChatResult is the parsed outcome of one coach reply.
type ChatResult struct {
	Reply     string
	Escalate  bool
	HabitHint string
	Model     string
}

// ChatAgent produces conversational coaching replies.
type ChatAgent struct {
	completer genai.Completer
	useMock   bool
}

// NewChatAgent creates the coach chat agent. A nil completer forces mock
// mode.
func NewChatAgent(completer genai.Completer, useMock bool) *ChatAgent {
	return &ChatAgent{completer: completer, useMock: useMock || completer == nil}
}

type chatOutput struct {
	Reply     string `json:"reply"`
	Escalate  bool   `json:"escalate"`
	HabitHint string `json:"habit_hint"`
}

// GenerateReply sends the sanitized conversation to the model and parses the
// structured reply. Malformed model output is downgraded to a plain reply,
// never surfaced as an error.
func (a *ChatAgent) GenerateReply(ctx context.Context, messages []models.CoachChatMessage, tone, targetGoal string) ChatResult {
	turns := make([]genai.Turn, 0, len(messages)+1)
	for _, m := range messages {
		turns = append(turns, genai.Turn{Role: m.Role, Content: privacy.Sanitize(m.Content)})
	}
	if targetGoal != "" {
		turns = append(turns, genai.Turn{Role: models.ChatRoleUser, Content: "Objetivo declarado: " + targetGoal})
	}

	if a.useMock {
		return a.mockReply(messages)
	}

	if tone == "" {
		tone = DefaultTone
	}
	content, err := a.completer.Complete(ctx, fmt.Sprintf(chatSystemPromptFormat, tone), turns)
	if err != nil {
		slog.Error("ChatAgent.GenerateReply: completion failed", "error", err)
		return ChatResult{
			Reply: "Estoy teniendo dificultades técnicas. Respira profundo y volvamos a intentarlo en unos minutos.",
			Model: FallbackModelVersion,
		}
	}

	var out chatOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		slog.Warn("ChatAgent.GenerateReply: model returned non-JSON content, passing through as reply")
		return ChatResult{Reply: content, Model: a.completer.Model()}
	}
	return ChatResult{
		Reply:     out.Reply,
		Escalate:  out.Escalate,
		HabitHint: out.HabitHint,
		Model:     a.completer.Model(),
	}
}

func (a *ChatAgent) mockReply(messages []models.CoachChatMessage) ChatResult {
	escalate := false
	for _, m := range messages {
		if m.Role == models.ChatRoleUser && strings.Contains(strings.ToLower(m.Content), "ansiedad") {
			escalate = true
			break
		}
	}
	result := ChatResult{
		Reply: "Gracias por compartirlo. Prueba el protocolo de respiración triangular durante 3 minutos " +
			"antes de tu siguiente sesión y registra cómo te sientes.",
		Escalate: escalate,
		Model:    MockModelVersion,
	}
	if escalate {
		result.HabitHint = "Respiración triangular antes de entrenar"
	}
	return result
}
