package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Plan generation (Anthropic)
	AnthropicAPIKey string
	AnthropicModel  string
	GenerateTimeout time.Duration

	// Planning policy
	WizardTTL         time.Duration
	ChangeCooldown    time.Duration
	DailyMinutesLimit int

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "GoalPal"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/goalpal.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Plan generation
		AnthropicAPIKey: envString("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envString("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		GenerateTimeout: envDuration("GENERATE_TIMEOUT", 2*time.Minute),

		// Planning policy
		WizardTTL:         envDuration("WIZARD_TTL", 24*time.Hour),
		ChangeCooldown:    envDuration("CHANGE_COOLDOWN", 7*24*time.Hour),
		DailyMinutesLimit: envInt("DAILY_MINUTES_LIMIT", 120),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures required services are configured for production
// deployments. Development allows the generator key to be absent so local
// runs can exercise the wizard flow end to end with a stub generator.
func validateProduction(cfg *Config) {
	if cfg.AnthropicAPIKey == "" {
		slog.Error("production deployment requires ANTHROPIC_API_KEY",
			"hint", "set APP_ENV=development for local testing without plan generation")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
