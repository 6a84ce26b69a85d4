// Package llm builds the OpenAI-compatible chat client shared by the
// interpreter and the narrator.
package llm

import (
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// Config selects the endpoint and model
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether a key is configured
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ModelName returns the configured model or DefaultModel
func (c Config) ModelName() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	return DefaultModel
}

// NewClient returns a chat client for cfg. SDK-level retries are disabled;
// callers retry with their own policy.
func NewClient(cfg Config) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return openai.NewClient(opts...)
}
