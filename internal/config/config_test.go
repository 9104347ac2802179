package config

import "testing"

func validConfig() *Config {
	return &Config{
		Environment:         "local",
		LogLevel:            "info",
		DatabaseURL:         "postgres://localhost/quill",
		DBMinConns:          1,
		DBMaxConns:          8,
		InitialPageSize:     3,
		LoadMorePageSize:    20,
		ConfidenceMinSample: 20,
		ConfidenceMinRatio:  0.3,
		ConfidenceMaxRatio:  1.0,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsMissingDatabaseURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.DatabaseURL = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}

func TestValidateRejectsBadPageSizes(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.InitialPageSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero initial page size")
	}

	cfg = validConfig()
	cfg.LoadMorePageSize = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for negative load-more page size")
	}
}

func TestValidateRejectsInvertedConfidenceBand(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ConfidenceMinRatio = 0.8
	cfg.ConfidenceMaxRatio = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for inverted confidence band")
	}
}

func TestCORSAllowedOriginsListDeduplicates(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CORSAllowedOrigins = "https://a.example.com, https://b.example.com,,https://a.example.com"
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 {
		t.Fatalf("unexpected origins: %v", got)
	}
}
