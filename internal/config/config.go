// Package config loads the assistant's configuration from the
// environment, with a .env file as optional convenience.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// BudgetPeriodMonth is the only budget period currently supported.
const BudgetPeriodMonth = "month"

type Config struct {
	// Completion service
	GeminiModel       string
	ExtractTimeout    time.Duration
	ExtractMaxRetries int

	// Ledger
	DefaultCurrency string
	SQLiteDBPath    string
	BudgetPeriod    string

	// Session
	AllowedUserID string
	SessionTTL    time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ExtractTimeout:    getEnvDuration("EXTRACT_TIMEOUT", 30*time.Second),
		ExtractMaxRetries: getEnvInt("EXTRACT_MAX_RETRIES", 2),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "CNY"),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		BudgetPeriod:    getEnv("BUDGET_PERIOD", BudgetPeriodMonth),

		AllowedUserID: getEnv("ALLOWED_USER_ID", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 5*time.Minute),
	}
}

// Validate returns an error describing every invalid option at once.
func (c *Config) Validate() error {
	var problems []string

	if c.AllowedUserID == "" {
		problems = append(problems, "ALLOWED_USER_ID must be set: the ledger has exactly one owner")
	}
	if c.DefaultCurrency == "" {
		problems = append(problems, "DEFAULT_CURRENCY cannot be empty")
	}
	if c.BudgetPeriod != BudgetPeriodMonth {
		problems = append(problems, fmt.Sprintf("unsupported BUDGET_PERIOD %q: only %q is supported", c.BudgetPeriod, BudgetPeriodMonth))
	}
	if c.ExtractTimeout <= 0 {
		problems = append(problems, "EXTRACT_TIMEOUT must be positive")
	}
	if c.ExtractMaxRetries < 0 {
		problems = append(problems, "EXTRACT_MAX_RETRIES cannot be negative")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
