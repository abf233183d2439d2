// Package escalation decides whether to surface a sports-psychology referral
// based on detected distress signals.
//
// The decision is rule-based: a numeric stress score, explicit flag tokens
// and keywords in the free-text reason each raise a provisional signal, which
// the free tier then downgrades unless severity is high enough.
package escalation

import (
	"strings"

	"github.com/MindAthlete/backend/internal/models"
)

// Severity thresholds for the numeric stress/mood score.
const (
	// ScoreThreshold raises the provisional escalation signal.
	ScoreThreshold = 65
	// FreeTierScoreThreshold is the stricter bar free-tier escalations must
	// clear when no high-severity flag is present.
	FreeTierScoreThreshold = 75
)

// escalationFlags raise the provisional signal for any tier.
var escalationFlags = map[string]bool{
	"high_anxiety": true,
	"self_doubt":   true,
	"panic":        true,
}

// strictFlags are the only flags that keep a free-tier escalation alive on
// their own.
var strictFlags = map[string]bool{
	"high_anxiety": true,
	"panic":        true,
}

// reasonKeywords trigger escalation when present in the free-text reason.
var reasonKeywords = []string{"ansiedad", "crisis", "bloqueo", "panic"}

// Context carries the stress signals evaluated for a decision. All fields
// are read-only inputs supplied by the caller.
type Context struct {
	Reason      string
	StressScore *float64
	Flags       []string
}

// ContextFromRequest extracts the engine inputs from an escalation request
// payload. The numeric score is read from "stress_score", falling back to
// "poms_total" for assessment-sourced requests.
func ContextFromRequest(req models.EscalationRequest) Context {
	ctx := Context{Reason: req.Reason}
	raw := req.Context
	if raw == nil {
		return ctx
	}
	if ctx.Reason == "" {
		if reason, ok := raw["reason"].(string); ok {
			ctx.Reason = reason
		}
	}
	if score, ok := numericValue(raw["stress_score"]); ok {
		ctx.StressScore = &score
	} else if score, ok := numericValue(raw["poms_total"]); ok {
		ctx.StressScore = &score
	}
	if flags, ok := raw["flags"].([]any); ok {
		for _, f := range flags {
			if s, ok := f.(string); ok {
				ctx.Flags = append(ctx.Flags, s)
			}
		}
	} else if flags, ok := raw["flags"].([]string); ok {
		ctx.Flags = append(ctx.Flags, flags...)
	}
	return ctx
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Engine evaluates escalation decisions. BookingURL may be empty, in which
// case escalating responses carry the referral message without a link.
type Engine struct {
	bookingURL string
}

// NewEngine creates an escalation engine with the configured booking URL.
func NewEngine(bookingURL string) *Engine {
	return &Engine{bookingURL: bookingURL}
}

// Decide evaluates the stress signals for the given tier.
//
// Free-tier escalation requires higher severity than premium: the provisional
// signal survives only with a high-severity flag (high_anxiety or panic) or a
// score of at least 75.
func (e *Engine) Decide(ctx Context, tier models.SubscriptionTier) models.EscalationResponse {
	escalate := false

	if ctx.StressScore != nil && *ctx.StressScore >= ScoreThreshold {
		escalate = true
	}
	if anyFlag(ctx.Flags, escalationFlags) {
		escalate = true
	}
	if ctx.Reason != "" {
		lower := strings.ToLower(ctx.Reason)
		for _, kw := range reasonKeywords {
			if strings.Contains(lower, kw) {
				escalate = true
				break
			}
		}
	}

	if tier == models.TierFree && escalate {
		strict := anyFlag(ctx.Flags, strictFlags)
		highScore := ctx.StressScore != nil && *ctx.StressScore >= FreeTierScoreThreshold
		escalate = strict || highScore
	}

	if !escalate {
		return models.EscalationResponse{
			Escalate: false,
			Message:  "Se registró el evento; continúa con el plan de autocuidado.",
		}
	}
	return models.EscalationResponse{
		Escalate:   true,
		BookingURL: e.bookingURL,
		Message:    "Recomendamos agendar una sesión con un psicólogo deportivo.",
	}
}

// BookingURL exposes the configured referral link for callers that build
// escalation notices outside the engine (e.g. chat-sourced flags).
func (e *Engine) BookingURL() string {
	return e.bookingURL
}

func anyFlag(flags []string, set map[string]bool) bool {
	for _, f := range flags {
		if set[f] {
			return true
		}
	}
	return false
}
