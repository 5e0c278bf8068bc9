package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mail-triage/")
	v.AddConfigPath("$HOME/.mail-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Agent defaults
	v.SetDefault("agent.name", "email-agent")
	v.SetDefault("agent.type", "email")
	v.SetDefault("agent.enabled", true)
	v.SetDefault("agent.interval", "10m")

	// Mailbox fetch defaults
	v.SetDefault("email.fetch_limit", 50)
	v.SetDefault("email.unread_only", true)
	v.SetDefault("email.since_days", 3)
	v.SetDefault("email.folder", "INBOX")

	// Classification defaults
	v.SetDefault("classification.use_ai_model", false)
	v.SetDefault("classification.provider", "bedrock")
	v.SetDefault("classification.topics_i_care_about", []string{})
	v.SetDefault("classification.whitelisted_senders", []string{})
	v.SetDefault("classification.blacklisted_senders", []string{})
	v.SetDefault("classification.max_body_length", 1000)

	// Deletion policy defaults
	v.SetDefault("deletion.action_on_deletion", "quarantine")
	v.SetDefault("deletion.delete_promotional", true)
	v.SetDefault("deletion.dry_run", true)
	v.SetDefault("deletion.label", "MarkedForDeletion")

	// Resource token defaults
	v.SetDefault("tokens.dir", "data/locks")
	v.SetDefault("tokens.acquire_timeout", "5m")
	v.SetDefault("tokens.holder", "")

	// Processing state defaults
	v.SetDefault("state.type", "file")
	v.SetDefault("state.path", "data/processing_state.json")

	// Classification trace defaults
	v.SetDefault("trace.type", "sqlite")
	v.SetDefault("trace.sqlite_path", "data/classification_trace.db")
	v.SetDefault("trace.mysql_dsn", "user:password@tcp(localhost:3306)/mail_triage")
	v.SetDefault("trace.max_entries", 1000)
	v.SetDefault("trace.prune_frequency", "1h")

	// Gmail transport defaults
	v.SetDefault("gmail.client_id", "")
	v.SetDefault("gmail.client_secret", "")
	v.SetDefault("gmail.scopes", []string{"https://www.googleapis.com/auth/gmail.modify"})

	// Secret store defaults
	v.SetDefault("secrets.dir", "data/secrets")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.base_url", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Shutdown defaults
	v.SetDefault("server.graceful_shutdown_timeout", "10s")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
