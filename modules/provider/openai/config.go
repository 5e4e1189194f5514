package openai

import (
	"errors"
	"time"
)

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds the settings of one OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Model == "" {
		return errors.New("openai: model is required")
	}
	// Local OpenAI-compatible servers often run without auth.
	if c.APIKey == "" && c.BaseURL == DefaultBaseURL {
		return errors.New("openai: api_key is required for the public API")
	}
	return nil
}
