// Package api provides HTTP handlers and the main API server logic for
// MindAthlete.
//
// It exposes the athlete-facing REST endpoints (profile, schedules, diary,
// habits, sessions, analytics) and the AI coach endpoints (daily agenda
// recommendations, streaming chat, habit plans, escalation decisions). All
// endpoints except the health check require a bearer token.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MindAthlete/backend/internal/agent"
	"github.com/MindAthlete/backend/internal/auth"
	"github.com/MindAthlete/backend/internal/escalation"
	"github.com/MindAthlete/backend/internal/gating"
	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// DefaultChatRetentionDays is how long chat messages are kept before the
// retention sweep removes them. Zero disables the sweep.
const DefaultChatRetentionDays = 90

// Opts holds API server configuration options.
type Opts struct {
	Addr                  string
	JWTSecret             string
	BookingURL            string
	UseMockAI             bool
	ChatDailyLimit        int
	HabitPlanCooldownDays int
	ChatRetentionDays     int
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithJWTSecret sets the shared secret bearer tokens are verified with.
func WithJWTSecret(secret string) Option {
	return func(o *Opts) { o.JWTSecret = secret }
}

// WithBookingURL sets the sports-psychology booking URL surfaced on
// escalations.
func WithBookingURL(url string) Option {
	return func(o *Opts) { o.BookingURL = url }
}

// WithMockAI forces every agent into deterministic mock mode.
func WithMockAI() Option {
	return func(o *Opts) { o.UseMockAI = true }
}

// WithChatDailyLimit overrides the free-tier daily chat message cap.
func WithChatDailyLimit(n int) Option {
	return func(o *Opts) { o.ChatDailyLimit = n }
}

// WithHabitPlanCooldownDays overrides the free-tier habit plan cooldown.
func WithHabitPlanCooldownDays(days int) Option {
	return func(o *Opts) { o.HabitPlanCooldownDays = days }
}

// WithChatRetentionDays overrides how long chat messages are retained.
func WithChatRetentionDays(days int) Option {
	return func(o *Opts) { o.ChatRetentionDays = days }
}

// Server routes MindAthlete API requests to the store, the gates and the
// agents.
type Server struct {
	st          store.Store
	verifier    auth.Verifier
	gatekeeper  *gating.Gatekeeper
	engine      *escalation.Engine
	recommender *agent.RecommendationAgent
	coach       *agent.ChatAgent
	planner     *agent.HabitPlanAgent
	advisor     *agent.AdvisorAgent

	addr      string
	retention time.Duration
	now       func() time.Time
}

// NewServer wires a server over the given store and token verifier. A nil
// completer puts every agent in mock mode.
func NewServer(st store.Store, verifier auth.Verifier, completer genai.Completer, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, ChatRetentionDays: DefaultChatRetentionDays}
	for _, opt := range opts {
		opt(&cfg)
	}

	var gateOpts []gating.Option
	if cfg.ChatDailyLimit > 0 {
		gateOpts = append(gateOpts, gating.WithChatDailyLimit(cfg.ChatDailyLimit))
	}
	if cfg.HabitPlanCooldownDays > 0 {
		gateOpts = append(gateOpts, gating.WithHabitPlanCooldown(time.Duration(cfg.HabitPlanCooldownDays)*24*time.Hour))
	}

	return &Server{
		st:          st,
		verifier:    verifier,
		gatekeeper:  gating.NewGatekeeper(st, gateOpts...),
		engine:      escalation.NewEngine(cfg.BookingURL),
		recommender: agent.NewRecommendationAgent(completer, cfg.UseMockAI),
		coach:       agent.NewChatAgent(completer, cfg.UseMockAI),
		planner:     agent.NewHabitPlanAgent(completer, cfg.UseMockAI),
		advisor:     agent.NewAdvisorAgent(completer, cfg.UseMockAI),
		addr:        cfg.Addr,
		retention:   time.Duration(cfg.ChatRetentionDays) * 24 * time.Hour,
		now:         time.Now,
	}
}

// Handler builds the route table. The health check is open; everything else
// sits behind the bearer-token middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.healthHandler)

	protected := auth.Middleware(s.verifier)
	routes := map[string]http.HandlerFunc{
		"/api/profile":                   s.profileHandler,
		"/api/profile/questionnaire":     s.questionnaireHandler,
		"/api/schedules":                 s.schedulesHandler,
		"/api/schedules/":                s.schedulesHandler,
		"/api/diary/":                    s.diaryHandler,
		"/api/habits":                    s.habitsHandler,
		"/api/habits/":                   s.habitsHandler,
		"/api/sessions/":                 s.sessionsHandler,
		"/api/recommendations/daily":     s.dailyRecommendationHandler,
		"/api/coach/chat":                s.coachChatHandler,
		"/api/coach/habit-plan":          s.habitPlanHandler,
		"/api/escalate":                  s.escalateHandler,
		"/api/ai/recommendations":        s.advisorHandler,
		"/api/ai/recommendations/latest": s.latestAdvisorHandler,
		"/api/analytics/events":          s.analyticsEventHandler,
		"/api/analytics/summary":         s.analyticsSummaryHandler,
	}
	for path, handler := range routes {
		mux.Handle(path, protected(handler))
	}
	return mux
}

// Run builds the store, the GenAI client and the server from option slices
// and serves until the listener fails.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	var storeCfg store.Opts
	for _, opt := range storeOpts {
		opt(&storeCfg)
	}

	var st store.Store
	var err error
	switch store.DetectDSNType(storeCfg.DSN) {
	case "postgres":
		st, err = store.NewPostgresStore(storeOpts...)
	default:
		st, err = store.NewSQLiteStore(storeOpts...)
	}
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	var completer genai.Completer
	if !cfg.UseMockAI {
		client, err := genai.NewClient(genaiOpts...)
		if err != nil {
			slog.Warn("api.Run: GenAI client unavailable, agents fall back to mock mode", "error", err)
		} else {
			completer = client
		}
	}

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT secret not set")
	}
	verifier := auth.NewJWTVerifier([]byte(cfg.JWTSecret))

	server := NewServer(st, verifier, completer, apiOpts...)
	slog.Info("api.Run: MindAthlete API listening", "addr", server.addr)
	return http.ListenAndServe(server.addr, server.Handler())
}

// healthHandler provides a health check endpoint for monitoring and load
// balancing.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
