package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.PreferredDepartment != "COMP" {
		t.Errorf("expected default preferred department COMP, got %s", cfg.PreferredDepartment)
	}
	if cfg.MaxSearchResults != 5 {
		t.Errorf("expected default max search results 5, got %d", cfg.MaxSearchResults)
	}
	if cfg.ShutdownTimeout != GracefulShutdown {
		t.Errorf("expected shutdown timeout %v, got %v", GracefulShutdown, cfg.ShutdownTimeout)
	}
	if len(cfg.CatalogDepartments) == 0 {
		t.Error("expected non-empty default catalog departments")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvPreferredDepartment, "MATH")
	t.Setenv(EnvMaxSearchResults, "8")
	t.Setenv(EnvShutdownTimeout, "10s")
	t.Setenv(EnvCatalogDepts, "comp, ecse")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.PreferredDepartment != "MATH" {
		t.Errorf("expected preferred department MATH, got %s", cfg.PreferredDepartment)
	}
	if cfg.MaxSearchResults != 8 {
		t.Errorf("expected max search results 8, got %d", cfg.MaxSearchResults)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected shutdown timeout 10s, got %v", cfg.ShutdownTimeout)
	}
	if len(cfg.CatalogDepartments) != 2 || cfg.CatalogDepartments[0] != "COMP" || cfg.CatalogDepartments[1] != "ECSE" {
		t.Errorf("expected catalog departments [COMP ECSE], got %v", cfg.CatalogDepartments)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv(EnvMaxSearchResults, "not-a-number")
	t.Setenv(EnvShutdownTimeout, "garbage")
	t.Setenv(EnvGlobalRateRPS, "NaN-ish")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.MaxSearchResults != 5 {
		t.Errorf("expected fallback max search results 5, got %d", cfg.MaxSearchResults)
	}
	if cfg.ShutdownTimeout != GracefulShutdown {
		t.Errorf("expected fallback shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
	if cfg.GlobalRateLimitRPS != 100.0 {
		t.Errorf("expected fallback global rate 100, got %f", cfg.GlobalRateLimitRPS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config passes",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "empty port fails",
			mutate:  func(c *Config) { c.Port = "" },
			wantErr: EnvPort,
		},
		{
			name:    "empty data dir fails",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: EnvDataDir,
		},
		{
			name:    "empty preferred department fails",
			mutate:  func(c *Config) { c.PreferredDepartment = "" },
			wantErr: EnvPreferredDepartment,
		},
		{
			name:    "non-positive max results fails",
			mutate:  func(c *Config) { c.MaxSearchResults = 0 },
			wantErr: EnvMaxSearchResults,
		},
		{
			name:    "negative scraper retries fails",
			mutate:  func(c *Config) { c.ScraperMaxRetries = -1 },
			wantErr: EnvScraperMaxRetries,
		},
		{
			name:    "R2 enabled without credentials fails",
			mutate:  func(c *Config) { c.R2Enabled = true },
			wantErr: "R2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned error: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestSQLitePath(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	got := cfg.SQLitePath()
	if !strings.HasSuffix(got, "catalog.db") {
		t.Errorf("expected path ending in catalog.db, got %s", got)
	}
}

func TestHasLLMProvider(t *testing.T) {
	cfg := &Config{}
	if cfg.HasLLMProvider() {
		t.Error("expected no provider when keys are empty")
	}
	cfg.GroqAPIKey = "gsk_test"
	if !cfg.HasLLMProvider() {
		t.Error("expected provider with Groq key set")
	}
}
