package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL         = "https://api.open.fec.gov/v1"
	defaultHourlyQuota     = 1000
	defaultQuotaTarget     = 0.8
	defaultPerPage         = 100
	defaultCheckpointEvery = 25
)

// Config holds pipeline configuration derived from environment variables.
type Config struct {
	APIKey          string
	BaseURL         string
	DatabaseURL     string
	HourlyQuota     int
	QuotaTarget     float64
	PerPage         int
	CheckpointEvery int
}

// Load reads configuration from the environment, loading a .env file
// first if one is present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:          os.Getenv("FEC_API_KEY"),
		BaseURL:         envOr("FEC_BASE_URL", defaultBaseURL),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HourlyQuota:     envIntOr("FEC_HOURLY_QUOTA", defaultHourlyQuota),
		QuotaTarget:     defaultQuotaTarget,
		PerPage:         envIntOr("FEC_PER_PAGE", defaultPerPage),
		CheckpointEvery: envIntOr("CRAWL_CHECKPOINT_EVERY", defaultCheckpointEvery),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("FEC_API_KEY environment variable is required")
	}
	if c.HourlyQuota <= 0 {
		return fmt.Errorf("FEC_HOURLY_QUOTA must be positive, got %d", c.HourlyQuota)
	}
	if c.PerPage <= 0 || c.PerPage > 100 {
		return fmt.Errorf("FEC_PER_PAGE must be in 1..100, got %d", c.PerPage)
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("CRAWL_CHECKPOINT_EVERY must be positive, got %d", c.CheckpointEvery)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
