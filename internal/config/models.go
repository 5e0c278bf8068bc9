package config

import (
	"fmt"
	"os"
	"time"
)

// AgentConfig represents the agent scheduling configuration
type AgentConfig struct {
	Name     string
	Type     string
	Enabled  bool
	Interval time.Duration
}

// EmailConfig represents the mailbox fetch configuration
type EmailConfig struct {
	FetchLimit int
	UnreadOnly bool
	SinceDays  int
	Folder     string
}

// ClassificationConfig represents the classifier configuration
type ClassificationConfig struct {
	UseAIModel         bool
	Provider           string
	Topics             []string
	WhitelistedSenders []string
	BlacklistedSenders []string
	MaxBodyLength      int
}

// DeletionConfig represents the promotional-cleanup policy configuration
type DeletionConfig struct {
	ActionOnDeletion  string
	DeletePromotional bool
	DryRun            bool
	Label             string
}

// TokensConfig represents the resource token manager configuration
type TokensConfig struct {
	Dir            string
	AcquireTimeout time.Duration
	Holder         string
}

// StateConfig represents the processing state persistence configuration
type StateConfig struct {
	Type string
	Path string
}

// TraceConfig represents the classification trace configuration
type TraceConfig struct {
	Type           string
	SQLitePath     string
	MySQLDSN       string
	MaxEntries     int
	PruneFrequency time.Duration
}

// GmailConfig represents the Gmail transport configuration
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	BaseURL     string
}

// GetAgent returns the agent configuration
func (c *Config) GetAgent() (AgentConfig, error) {
	interval, err := c.GetDuration("agent.interval")
	if err != nil {
		return AgentConfig{}, fmt.Errorf("invalid agent.interval: %w", err)
	}
	if interval < time.Minute {
		return AgentConfig{}, fmt.Errorf("agent.interval must be at least 1m, got %s", interval)
	}
	return AgentConfig{
		Name:     c.GetString("agent.name"),
		Type:     c.GetString("agent.type"),
		Enabled:  c.GetBool("agent.enabled"),
		Interval: interval,
	}, nil
}

// GetEmail returns the mailbox fetch configuration
func (c *Config) GetEmail() EmailConfig {
	return EmailConfig{
		FetchLimit: c.GetInt("email.fetch_limit"),
		UnreadOnly: c.GetBool("email.unread_only"),
		SinceDays:  c.GetInt("email.since_days"),
		Folder:     c.GetString("email.folder"),
	}
}

// GetClassification returns the classifier configuration
func (c *Config) GetClassification() ClassificationConfig {
	return ClassificationConfig{
		UseAIModel:         c.GetBool("classification.use_ai_model"),
		Provider:           c.GetString("classification.provider"),
		Topics:             c.GetStringSlice("classification.topics_i_care_about"),
		WhitelistedSenders: c.GetStringSlice("classification.whitelisted_senders"),
		BlacklistedSenders: c.GetStringSlice("classification.blacklisted_senders"),
		MaxBodyLength:      c.GetInt("classification.max_body_length"),
	}
}

// GetDeletion returns the promotional-cleanup policy configuration
func (c *Config) GetDeletion() (DeletionConfig, error) {
	action := c.GetString("deletion.action_on_deletion")
	if action != "quarantine" && action != "label" {
		return DeletionConfig{}, fmt.Errorf("deletion.action_on_deletion must be quarantine or label, got %q", action)
	}
	return DeletionConfig{
		ActionOnDeletion:  action,
		DeletePromotional: c.GetBool("deletion.delete_promotional"),
		DryRun:            c.GetBool("deletion.dry_run"),
		Label:             c.GetString("deletion.label"),
	}, nil
}

// GetTokens returns the resource token manager configuration
func (c *Config) GetTokens() (TokensConfig, error) {
	timeout, err := c.GetDuration("tokens.acquire_timeout")
	if err != nil {
		return TokensConfig{}, fmt.Errorf("invalid tokens.acquire_timeout: %w", err)
	}
	holder := c.GetString("tokens.holder")
	if holder == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		holder = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}
	return TokensConfig{
		Dir:            c.GetString("tokens.dir"),
		AcquireTimeout: timeout,
		Holder:         holder,
	}, nil
}

// GetState returns the processing state persistence configuration
func (c *Config) GetState() StateConfig {
	return StateConfig{
		Type: c.GetString("state.type"),
		Path: c.GetString("state.path"),
	}
}

// GetTrace returns the classification trace configuration
func (c *Config) GetTrace() (TraceConfig, error) {
	pruneFreq, err := c.GetDuration("trace.prune_frequency")
	if err != nil {
		return TraceConfig{}, fmt.Errorf("invalid trace.prune_frequency: %w", err)
	}
	return TraceConfig{
		Type:           c.GetString("trace.type"),
		SQLitePath:     c.GetString("trace.sqlite_path"),
		MySQLDSN:       c.GetString("trace.mysql_dsn"),
		MaxEntries:     c.GetInt("trace.max_entries"),
		PruneFrequency: pruneFreq,
	}, nil
}

// GetGmail returns the Gmail transport configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		ClientID:     c.GetString("gmail.client_id"),
		ClientSecret: c.GetString("gmail.client_secret"),
		Scopes:       c.GetStringSlice("gmail.scopes"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		BaseURL:     c.GetString("openai.base_url"),
	}
}
