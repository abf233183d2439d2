package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/MindAthlete/backend/internal/api"
	"github.com/MindAthlete/backend/internal/genai"
	"github.com/MindAthlete/backend/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for MindAthlete state data
	DefaultStateDir = "/var/lib/mindathlete"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "mindathlete.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping MindAthlete with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("MindAthlete failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("MindAthlete exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	StateDir       string
	OpenAIKey      string
	OpenAIModel    string
	JWTSecret      string
	APIAddr        string
	BookingURL     string
	UseMockAI      bool
	ChatDailyLimit int
	PlanCooldown   int
	ChatRetention  int
}

// Flags holds command line flag values
type Flags struct {
	dbDSN          *string
	stateDir       *string
	openaiKey      *string
	openaiModel    *string
	jwtSecret      *string
	apiAddr        *string
	bookingURL     *string
	useMockAI      *bool
	chatDailyLimit *int
	planCooldown   *int
	chatRetention  *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("MINDATHLETE_STATE_DIR"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		APIAddr:        os.Getenv("API_ADDR"),
		BookingURL:     os.Getenv("SPORTS_PSYCHOLOGY_BOOKING_URL"),
		UseMockAI:      envBool("USE_MOCK_AI"),
		ChatDailyLimit: envInt("CHAT_DAILY_FREE_LIMIT"),
		PlanCooldown:   envInt("HABIT_PLAN_FREE_COOLDOWN_DAYS"),
		ChatRetention:  envInt("CHAT_RETENTION_DAYS"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No MINDATHLETE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MINDATHLETE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"JWT_SECRET_SET", config.JWTSecret != "",
		"API_ADDR", config.APIAddr,
		"USE_MOCK_AI", config.UseMockAI)

	return config
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envInt(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return n
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for MindAthlete data (overrides $MINDATHLETE_STATE_DIR)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:    flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		jwtSecret:      flag.String("jwt-secret", config.JWTSecret, "shared secret for bearer token verification (overrides $JWT_SECRET)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		bookingURL:     flag.String("booking-url", config.BookingURL, "sports psychology booking URL (overrides $SPORTS_PSYCHOLOGY_BOOKING_URL)"),
		useMockAI:      flag.Bool("use-mock-ai", config.UseMockAI, "force deterministic mock agents (overrides $USE_MOCK_AI)"),
		chatDailyLimit: flag.Int("chat-daily-limit", config.ChatDailyLimit, "free-tier daily chat message cap (overrides $CHAT_DAILY_FREE_LIMIT)"),
		planCooldown:   flag.Int("habit-plan-cooldown-days", config.PlanCooldown, "free-tier habit plan cooldown in days (overrides $HABIT_PLAN_FREE_COOLDOWN_DAYS)"),
		chatRetention:  flag.Int("chat-retention-days", config.ChatRetention, "chat message retention window in days (overrides $CHAT_RETENTION_DAYS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"openaiKeySet", *flags.openaiKey != "",
		"jwtSecretSet", *flags.jwtSecret != "",
		"apiAddr", *flags.apiAddr,
		"useMockAI", *flags.useMockAI)

	// Follow an overridden state directory when the DSN was left at its
	// SQLite default.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.jwtSecret != "" {
		apiOpts = append(apiOpts, api.WithJWTSecret(*flags.jwtSecret))
	}
	if *flags.bookingURL != "" {
		apiOpts = append(apiOpts, api.WithBookingURL(*flags.bookingURL))
	}
	if *flags.useMockAI {
		apiOpts = append(apiOpts, api.WithMockAI())
	}
	if *flags.chatDailyLimit > 0 {
		apiOpts = append(apiOpts, api.WithChatDailyLimit(*flags.chatDailyLimit))
	}
	if *flags.planCooldown > 0 {
		apiOpts = append(apiOpts, api.WithHabitPlanCooldownDays(*flags.planCooldown))
	}
	if *flags.chatRetention > 0 {
		apiOpts = append(apiOpts, api.WithChatRetentionDays(*flags.chatRetention))
	}
	return apiOpts
}
