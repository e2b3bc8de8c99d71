package common

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Server.HTTPAddr != ":8000" {
		t.Errorf("expected default addr :8000, got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Worker.PollInterval != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %v", cfg.Worker.PollInterval)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected default model %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.MaxAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.Gemini.MaxAttempts)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("GEMINI_TEMPERATURE", "0.7")
	t.Setenv("DB_MAX_CONNS", "50")

	cfg := LoadConfig()

	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("HTTP_ADDR override ignored, got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Worker.PollInterval != 250*time.Millisecond {
		t.Errorf("POLL_INTERVAL override ignored, got %v", cfg.Worker.PollInterval)
	}
	if cfg.Gemini.Temperature != 0.7 {
		t.Errorf("GEMINI_TEMPERATURE override ignored, got %f", cfg.Gemini.Temperature)
	}
	if cfg.Database.MaxConns != 50 {
		t.Errorf("DB_MAX_CONNS override ignored, got %d", cfg.Database.MaxConns)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{DSN: "postgres://localhost/orders"},
		Server:   ServerConfig{HTTPAddr: ":8000"},
		Gemini:   GeminiConfig{APIKey: "key"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.Gemini.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing API key should fail validation")
	}

	cfg.Gemini.APIKey = "key"
	cfg.Database.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing DSN should fail validation")
	}
}
