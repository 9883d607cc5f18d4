// Package config loads the daemon configuration from TOML.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/oraclekit/credentials"
	oraclerr "github.com/vinayprograms/oraclekit/errors"
)

// Config is the full daemon configuration.
type Config struct {
	// PackageID is the deployed task package address on the ledger. Required.
	PackageID string `toml:"package_id"`

	// AgentAddress is the agent account tasks are addressed to. Required.
	AgentAddress string `toml:"agent_address"`

	// Sender is the consumer's own account address. When empty the active
	// CLI account is used.
	Sender string `toml:"sender"`

	// PollIntervalSeconds is the idle wait between poll cycles. Default: 1.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`

	// DefaultLanguage for tasks that omit a lang argument. Default: "en".
	DefaultLanguage string `toml:"default_language"`

	// Binary is the ledger CLI executable. Default: "rooch".
	Binary string `toml:"binary"`

	// EventsURL optionally enables the websocket event watcher.
	EventsURL string `toml:"events_url"`

	// ArchivePath optionally enables the local summary archive.
	ArchivePath string `toml:"archive_path"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`

	// LLM configures the summarization backend.
	LLM LLMConfig `toml:"llm"`
}

// LLMConfig configures the summarization provider.
type LLMConfig struct {
	// Provider is "openai", "anthropic", or "google". Default: "openai".
	Provider string `toml:"provider"`

	// Model is the provider model name. Required.
	Model string `toml:"model"`

	// APIKey overrides credential-file and environment lookup.
	APIKey string `toml:"api_key"`

	// BaseURL optionally points at a custom API endpoint.
	BaseURL string `toml:"base_url"`

	// MaxTokens bounds the summary length.
	MaxTokens int `toml:"max_tokens"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, oraclerr.Wrap(oraclerr.ErrCodeConfig,
			fmt.Sprintf("failed to load config %s", path), err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 1
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.Binary == "" {
		c.Binary = "rooch"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.PackageID == "" {
		return oraclerr.Config("package_id is required")
	}
	if c.AgentAddress == "" {
		return oraclerr.Config("agent_address is required")
	}
	if c.LLM.Model == "" {
		return oraclerr.Config("llm.model is required")
	}
	return nil
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ResolveAPIKey returns the provider API key.
// Priority: config file > credentials file > environment variable.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey, nil
	}

	creds, path, err := credentials.Load()
	if err != nil {
		return "", oraclerr.Wrap(oraclerr.ErrCodeConfig,
			fmt.Sprintf("failed to load credentials from %s", path), err)
	}

	key := creds.GetAPIKey(c.LLM.Provider)
	if key == "" {
		return "", oraclerr.Config(fmt.Sprintf(
			"no API key for provider %q: set llm.api_key, a credentials file, or %s",
			c.LLM.Provider, credentials.EnvVarForProvider(c.LLM.Provider)))
	}
	return key, nil
}
