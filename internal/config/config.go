// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port              string
	FrontendURL       string
	DBPath            string
	AllowedOrigins    []string
	MaxBodyBytes      int64
	DefaultLanguage   string
	PromptCatalogPath string
	Generator         GeneratorConfig
	Generation        GenerationConfig
	RateLimit         RateLimitConfig
	Timeout           TimeoutConfig
}

// GeneratorConfig configures the Anthropic Messages API client.
// It is read once at startup and shared by every request.
type GeneratorConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	APIVersion string
	MaxTokens  int
}

// GenerationConfig controls section generation.
type GenerationConfig struct {
	Timeout        time.Duration
	ClaimLease     time.Duration
	ReaperInterval time.Duration
}

// RateLimitConfig limits generate requests per client IP.
// PerMinute <= 0 disables limiting.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// TimeoutConfig holds HTTP server timeouts.
type TimeoutConfig struct {
	Read        time.Duration
	Idle        time.Duration
	Shutdown    time.Duration
	HealthCheck time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "5000"),
		FrontendURL:       getEnv("FRONTEND_URL", ""),
		DBPath:            getEnv("DB_PATH", "./data/planbridge.db"),
		AllowedOrigins:    getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		MaxBodyBytes:      int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 50<<20)),
		DefaultLanguage:   getEnv("DEFAULT_LANGUAGE", "italiano"),
		PromptCatalogPath: getEnv("PROMPT_CATALOG_PATH", ""),
		Generator: GeneratorConfig{
			APIKey:     getEnv("CLAUDE_API_KEY", ""),
			BaseURL:    getEnv("CLAUDE_API_URL", "https://api.anthropic.com"),
			Model:      getEnv("CLAUDE_MODEL", "claude-3-opus-20240229"),
			APIVersion: getEnv("CLAUDE_API_VERSION", "2023-06-01"),
			MaxTokens:  getEnvInt("CLAUDE_MAX_TOKENS", 4000),
		},
		Generation: GenerationConfig{
			Timeout:        getEnvDuration("GENERATION_TIMEOUT", 120*time.Second),
			ClaimLease:     getEnvDuration("GENERATION_CLAIM_LEASE", 10*time.Minute),
			ReaperInterval: getEnvDuration("CLAIM_REAPER_INTERVAL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("GENERATE_RATE_PER_MINUTE", 30),
			Burst:     getEnvInt("GENERATE_RATE_BURST", 10),
		},
		Timeout: TimeoutConfig{
			Read:        30 * time.Second,
			Idle:        120 * time.Second,
			Shutdown:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			HealthCheck: 5 * time.Second,
		},
	}

	// The frontend origin is always allowed when it is configured.
	if cfg.FrontendURL != "" && !contains(cfg.AllowedOrigins, "*") && !contains(cfg.AllowedOrigins, cfg.FrontendURL) {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, cfg.FrontendURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// A missing CLAUDE_API_KEY is allowed; generation requests then fail.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.DefaultLanguage == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE cannot be empty")
	}
	if c.Generator.BaseURL == "" {
		return fmt.Errorf("CLAUDE_API_URL cannot be empty")
	}
	if c.Generator.Model == "" {
		return fmt.Errorf("CLAUDE_MODEL cannot be empty")
	}
	if c.Generator.MaxTokens <= 0 {
		return fmt.Errorf("CLAUDE_MAX_TOKENS must be > 0")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.Generation.ClaimLease < c.Generation.Timeout {
		return fmt.Errorf("GENERATION_CLAIM_LEASE (%s) must be >= GENERATION_TIMEOUT (%s)",
			c.Generation.ClaimLease, c.Generation.Timeout)
	}
	if c.Generation.ReaperInterval <= 0 {
		return fmt.Errorf("CLAIM_REAPER_INTERVAL must be > 0")
	}
	if c.RateLimit.PerMinute > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("GENERATE_RATE_BURST must be > 0 when rate limiting is enabled")
	}
	return nil
}

// GeneratorConfigured reports whether an API key is available.
func (c *Config) GeneratorConfigured() bool {
	return c.Generator.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
