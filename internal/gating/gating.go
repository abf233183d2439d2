// Package gating enforces the free-tier limits: subscription tier
// resolution, the daily chat quota and the habit-plan regeneration cooldown.
//
// Lookup failures never block a request. Tier resolution reports them as an
// explicit Unavailable outcome and the gates fail open, logging the error;
// availability is deliberately preferred over precision here.
package gating

import (
	"log/slog"
	"strings"
	"time"

	"github.com/MindAthlete/backend/internal/models"
	"github.com/MindAthlete/backend/internal/timeutil"
)

// Defaults for the free-tier limits.
const (
	// DefaultChatDailyLimit is the free-tier cap on user-authored chat
	// messages per UTC day.
	DefaultChatDailyLimit = 10
	// DefaultHabitPlanCooldown is the free-tier wait between AI habit plans.
	DefaultHabitPlanCooldown = 21 * 24 * time.Hour
)

// Store is the narrow persistence surface the gates depend on.
type Store interface {
	ActiveEntitlements(userID string) ([]models.Entitlement, error)
	CountUserMessagesSince(userID string, since time.Time) (int, error)
	HasRecentAIHabitPlan(userID string, since time.Time) (bool, error)
}

// Resolution is the outcome of a tier lookup. Unavailable marks a failed
// lookup so callers make the fail-open decision deliberately instead of via
// a swallowed error.
type Resolution struct {
	Tier        models.SubscriptionTier
	Unavailable bool
}

// Opts holds gatekeeper configuration.
type Opts struct {
	ChatDailyLimit    int
	HabitPlanCooldown time.Duration
}

// Option configures the gatekeeper.
type Option func(*Opts)

// WithChatDailyLimit overrides the free-tier daily chat message cap.
func WithChatDailyLimit(n int) Option {
	return func(o *Opts) { o.ChatDailyLimit = n }
}

// WithHabitPlanCooldown overrides the free-tier habit plan cooldown window.
func WithHabitPlanCooldown(d time.Duration) Option {
	return func(o *Opts) { o.HabitPlanCooldown = d }
}

// Gatekeeper resolves tiers and enforces free-tier quotas. Each request
// re-resolves; nothing is cached across requests.
type Gatekeeper struct {
	store    Store
	limit    int
	cooldown time.Duration
	now      func() time.Time
}

// NewGatekeeper creates a gatekeeper over the given store.
func NewGatekeeper(store Store, opts ...Option) *Gatekeeper {
	cfg := Opts{ChatDailyLimit: DefaultChatDailyLimit, HabitPlanCooldown: DefaultHabitPlanCooldown}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Gatekeeper{store: store, limit: cfg.ChatDailyLimit, cooldown: cfg.HabitPlanCooldown, now: time.Now}
}

// ResolveTier looks up the user's active entitlements. Premium requires an
// active entitlement whose product name contains "premium"
// (case-insensitive). A failed lookup returns Unavailable with the free tier
// so callers can proceed.
func (g *Gatekeeper) ResolveTier(userID string) Resolution {
	entitlements, err := g.store.ActiveEntitlements(userID)
	if err != nil {
		slog.Warn("Gatekeeper.ResolveTier: entitlement lookup failed, failing open to free", "error", err, "user_id", userID)
		return Resolution{Tier: models.TierFree, Unavailable: true}
	}
	for _, ent := range entitlements {
		if ent.Product != "" && strings.Contains(strings.ToLower(ent.Product), "premium") {
			return Resolution{Tier: models.TierPremium}
		}
	}
	return Resolution{Tier: models.TierFree}
}

// CheckChatQuota enforces the free-tier daily message cap. Premium is a
// no-op. The count is recomputed from the store per request; concurrent
// requests near the limit can both pass, which is an accepted race.
func (g *Gatekeeper) CheckChatQuota(userID string, tier models.SubscriptionTier) error {
	if tier == models.TierPremium {
		return nil
	}
	startOfDay := timeutil.StartOfDayUTC(g.now())
	count, err := g.store.CountUserMessagesSince(userID, startOfDay)
	if err != nil {
		slog.Error("Gatekeeper.CheckChatQuota: quota lookup failed, failing open", "error", err, "user_id", userID)
		return nil
	}
	if count >= g.limit {
		slog.Info("Gatekeeper.CheckChatQuota: daily limit reached", "user_id", userID, "count", count, "limit", g.limit)
		return models.ErrQuotaExceeded
	}
	return nil
}

// CheckHabitPlanCooldown enforces the free-tier wait between AI-generated
// habit plans. Premium is a no-op. Fails open on lookup error.
func (g *Gatekeeper) CheckHabitPlanCooldown(userID string, tier models.SubscriptionTier) error {
	if tier == models.TierPremium {
		return nil
	}
	cutoff := g.now().Add(-g.cooldown)
	recent, err := g.store.HasRecentAIHabitPlan(userID, cutoff)
	if err != nil {
		slog.Error("Gatekeeper.CheckHabitPlanCooldown: cooldown lookup failed, failing open", "error", err, "user_id", userID)
		return nil
	}
	if recent {
		slog.Info("Gatekeeper.CheckHabitPlanCooldown: cooldown active", "user_id", userID)
		return models.ErrCooldownActive
	}
	return nil
}
