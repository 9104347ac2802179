package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"QUILL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"QUILL_DB_MAX_CONNS" default:"8"`

	// Thread pagination: the small first page for fast initial paint and
	// the larger load-more page size.
	InitialPageSize  int `envconfig:"THREAD_INITIAL_PAGE_SIZE" default:"3"`
	LoadMorePageSize int `envconfig:"THREAD_LOAD_MORE_PAGE_SIZE" default:"20"`

	// Confidence heuristics for the estimated thread total. Tuning knobs,
	// not correctness properties.
	ConfidenceMinSample int     `envconfig:"THREAD_CONFIDENCE_MIN_SAMPLE" default:"20"`
	ConfidenceMinRatio  float64 `envconfig:"THREAD_CONFIDENCE_MIN_RATIO" default:"0.3"`
	ConfidenceMaxRatio  float64 `envconfig:"THREAD_CONFIDENCE_MAX_RATIO" default:"1.0"`

	// DetectLanguage toggles ISO-639-1 tagging of normalized messages.
	// The lingua models are memory-hungry, so this is opt-in.
	DetectLanguage bool `envconfig:"THREAD_DETECT_LANGUAGE" default:"false"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("QUILL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("QUILL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("QUILL_DB_MIN_CONNS (%d) cannot exceed QUILL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.InitialPageSize < 1 {
		return fmt.Errorf("THREAD_INITIAL_PAGE_SIZE must be >= 1")
	}
	if c.LoadMorePageSize < 1 {
		return fmt.Errorf("THREAD_LOAD_MORE_PAGE_SIZE must be >= 1")
	}
	if c.ConfidenceMinSample < 1 {
		return fmt.Errorf("THREAD_CONFIDENCE_MIN_SAMPLE must be >= 1")
	}
	if c.ConfidenceMinRatio <= 0 || c.ConfidenceMinRatio > 1 {
		return fmt.Errorf("THREAD_CONFIDENCE_MIN_RATIO must be in (0, 1]")
	}
	if c.ConfidenceMaxRatio < c.ConfidenceMinRatio {
		return fmt.Errorf("THREAD_CONFIDENCE_MAX_RATIO (%.2f) cannot be below THREAD_CONFIDENCE_MIN_RATIO (%.2f)", c.ConfidenceMaxRatio, c.ConfidenceMinRatio)
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
