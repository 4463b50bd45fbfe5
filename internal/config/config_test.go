package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.DefaultCurrency != "CNY" {
		t.Errorf("DefaultCurrency = %q, want CNY", cfg.DefaultCurrency)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.ExtractTimeout != 30*time.Second {
		t.Errorf("ExtractTimeout = %v", cfg.ExtractTimeout)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("EXTRACT_TIMEOUT", "10s")
	t.Setenv("EXTRACT_MAX_RETRIES", "5")
	t.Setenv("ALLOWED_USER_ID", "42")

	cfg := Load()

	if cfg.DefaultCurrency != "EUR" {
		t.Errorf("DefaultCurrency = %q, want EUR", cfg.DefaultCurrency)
	}
	if cfg.ExtractTimeout != 10*time.Second {
		t.Errorf("ExtractTimeout = %v, want 10s", cfg.ExtractTimeout)
	}
	if cfg.ExtractMaxRetries != 5 {
		t.Errorf("ExtractMaxRetries = %d, want 5", cfg.ExtractMaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing allowed user",
			mutate:  func(c *Config) { c.AllowedUserID = "" },
			wantErr: "ALLOWED_USER_ID",
		},
		{
			name:    "empty currency",
			mutate:  func(c *Config) { c.DefaultCurrency = "" },
			wantErr: "DEFAULT_CURRENCY",
		},
		{
			name:    "unsupported budget period",
			mutate:  func(c *Config) { c.BudgetPeriod = "week" },
			wantErr: "BUDGET_PERIOD",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.ExtractTimeout = 0 },
			wantErr: "EXTRACT_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.AllowedUserID = "42"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
