package gemini

import (
	"time"

	"github.com/puntogafas/order-intake/internal/llm"
)

// Config holds everything the Gemini client needs.
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	Temperature     float32
	MaxOutputTokens int
	Retry           llm.RetryPolicy
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 3000
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = llm.DefaultRetryPolicy()
	}
	return c
}
