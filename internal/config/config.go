package config

import (
	"fmt"
	"slices"

	"github.com/caarlos0/env/v11"

	"github.com/aaronzipp/werewolf-gm/internal/llm"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config is the process configuration read from the environment
type Config struct {
	HTTPAddr  string `env:"WEREWOLF_HTTP_ADDR" envDefault:":8080"`
	PublicURL string `env:"WEREWOLF_PUBLIC_URL"`

	Store  string `env:"WEREWOLF_STORE" envDefault:"memory"`
	DBPath string `env:"WEREWOLF_DB_PATH" envDefault:"data/werewolf.db"`

	MCPTransport string `env:"WEREWOLF_MCP_TRANSPORT" envDefault:"none"`
	MCPAddr      string `env:"WEREWOLF_MCP_ADDR" envDefault:"localhost:8081"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	Model         string `env:"WEREWOLF_MODEL"`

	OTelEndpoint string `env:"WEREWOLF_OTEL_ENDPOINT"`

	Debug bool `env:"DEBUG"`
}

// Load parses the environment into a Config and validates it
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c Config) Validate() error {
	if !slices.Contains([]string{StoreMemory, StoreSQLite}, c.Store) {
		return fmt.Errorf("WEREWOLF_STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store)
	}
	if c.Store == StoreSQLite && c.DBPath == "" {
		return fmt.Errorf("WEREWOLF_DB_PATH is required for the sqlite store")
	}
	if !slices.Contains([]string{"none", "stdio", "http"}, c.MCPTransport) {
		return fmt.Errorf("WEREWOLF_MCP_TRANSPORT must be none, stdio or http, got %q", c.MCPTransport)
	}
	return nil
}

// LLM returns the language model settings
func (c Config) LLM() llm.Config {
	return llm.Config{APIKey: c.OpenAIKey, BaseURL: c.OpenAIBaseURL, Model: c.Model}
}
