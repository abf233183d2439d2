package gating

import (
	"errors"
	"testing"
	"time"

	"github.com/MindAthlete/backend/internal/models"
)

type fakeStore struct {
	entitlements []models.Entitlement
	entErr       error
	msgCount     int
	msgErr       error
	recentPlan   bool
	planErr      error

	countedSince time.Time
}

func (f *fakeStore) ActiveEntitlements(string) ([]models.Entitlement, error) {
	return f.entitlements, f.entErr
}

func (f *fakeStore) CountUserMessagesSince(_ string, since time.Time) (int, error) {
	f.countedSince = since
	return f.msgCount, f.msgErr
}

func (f *fakeStore) HasRecentAIHabitPlan(string, time.Time) (bool, error) {
	return f.recentPlan, f.planErr
}

func TestResolveTier(t *testing.T) {
	cases := []struct {
		name     string
		store    *fakeStore
		wantTier models.SubscriptionTier
		wantUnav bool
	}{
		{"no entitlements", &fakeStore{}, models.TierFree, false},
		{"premium product", &fakeStore{entitlements: []models.Entitlement{{Product: "ma_premium_monthly", Active: true}}}, models.TierPremium, false},
		{"premium case-insensitive", &fakeStore{entitlements: []models.Entitlement{{Product: "Premium Annual", Active: true}}}, models.TierPremium, false},
		{"non-premium product", &fakeStore{entitlements: []models.Entitlement{{Product: "starter_pack", Active: true}}}, models.TierFree, false},
		{"lookup failure fails open", &fakeStore{entErr: errors.New("boom")}, models.TierFree, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := NewGatekeeper(c.store)
			res := g.ResolveTier("u1")
			if res.Tier != c.wantTier {
				t.Errorf("tier = %s, want %s", res.Tier, c.wantTier)
			}
			if res.Unavailable != c.wantUnav {
				t.Errorf("unavailable = %v, want %v", res.Unavailable, c.wantUnav)
			}
		})
	}
}

func TestCheckChatQuota(t *testing.T) {
	st := &fakeStore{msgCount: 10}
	g := NewGatekeeper(st)

	if err := g.CheckChatQuota("u1", models.TierFree); !errors.Is(err, models.ErrQuotaExceeded) {
		t.Errorf("10 prior messages at free tier: err = %v, want ErrQuotaExceeded", err)
	}
	if err := g.CheckChatQuota("u1", models.TierPremium); err != nil {
		t.Errorf("premium tier must never hit the quota, got %v", err)
	}

	st.msgCount = 9
	if err := g.CheckChatQuota("u1", models.TierFree); err != nil {
		t.Errorf("9 prior messages should pass, got %v", err)
	}
	if st.countedSince.IsZero() || st.countedSince.Hour() != 0 || st.countedSince.Location() != time.UTC {
		t.Errorf("quota window should start at UTC midnight, got %v", st.countedSince)
	}

	// Lookup failure fails open.
	st.msgErr = errors.New("store down")
	if err := g.CheckChatQuota("u1", models.TierFree); err != nil {
		t.Errorf("quota check must fail open on store error, got %v", err)
	}
}

func TestCheckChatQuotaConfiguredLimit(t *testing.T) {
	st := &fakeStore{msgCount: 3}
	g := NewGatekeeper(st, WithChatDailyLimit(3))
	if err := g.CheckChatQuota("u1", models.TierFree); !errors.Is(err, models.ErrQuotaExceeded) {
		t.Errorf("custom limit not applied: %v", err)
	}
}

func TestCheckHabitPlanCooldown(t *testing.T) {
	st := &fakeStore{recentPlan: true}
	g := NewGatekeeper(st)

	if err := g.CheckHabitPlanCooldown("u1", models.TierFree); !errors.Is(err, models.ErrCooldownActive) {
		t.Errorf("recent AI plan at free tier: err = %v, want ErrCooldownActive", err)
	}
	if err := g.CheckHabitPlanCooldown("u1", models.TierPremium); err != nil {
		t.Errorf("premium tier must never hit the cooldown, got %v", err)
	}

	st.recentPlan = false
	if err := g.CheckHabitPlanCooldown("u1", models.TierFree); err != nil {
		t.Errorf("no recent plan should pass, got %v", err)
	}

	st.planErr = errors.New("store down")
	if err := g.CheckHabitPlanCooldown("u1", models.TierFree); err != nil {
		t.Errorf("cooldown check must fail open on store error, got %v", err)
	}
}
