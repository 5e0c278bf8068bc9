package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *Config {
	return NewFromViper(NewEmptyViper())
}

func TestDefaults(t *testing.T) {
	cfg := newTestConfig()

	email := cfg.GetEmail()
	assert.Equal(t, 50, email.FetchLimit)
	assert.True(t, email.UnreadOnly)
	assert.Equal(t, 3, email.SinceDays)
	assert.Equal(t, "INBOX", email.Folder)

	class := cfg.GetClassification()
	assert.False(t, class.UseAIModel)
	assert.Equal(t, "bedrock", class.Provider)
	assert.Empty(t, class.Topics)
	assert.Empty(t, class.WhitelistedSenders)
	assert.Empty(t, class.BlacklistedSenders)
	assert.Equal(t, 1000, class.MaxBodyLength)

	state := cfg.GetState()
	assert.Equal(t, "file", state.Type)
	assert.Equal(t, "data/processing_state.json", state.Path)

	gmail := cfg.GetGmail()
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.modify"}, gmail.Scopes)

	assert.Equal(t, "info", cfg.GetString("logging.level"))
	assert.Equal(t, "json", cfg.GetString("logging.format"))
}

func TestGetAgent(t *testing.T) {
	cfg := newTestConfig()

	agent, err := cfg.GetAgent()
	require.NoError(t, err)
	assert.Equal(t, "email-agent", agent.Name)
	assert.Equal(t, "email", agent.Type)
	assert.True(t, agent.Enabled)
	assert.Equal(t, 10*time.Minute, agent.Interval)
}

func TestGetAgentRejectsShortInterval(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("agent.interval", "30s")

	_, err := cfg.GetAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1m")
}

func TestGetAgentRejectsMalformedInterval(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("agent.interval", "often")

	_, err := cfg.GetAgent()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid agent.interval")
}

func TestGetDeletion(t *testing.T) {
	cfg := newTestConfig()

	deletion, err := cfg.GetDeletion()
	require.NoError(t, err)
	assert.Equal(t, "quarantine", deletion.ActionOnDeletion)
	assert.True(t, deletion.DeletePromotional)
	assert.True(t, deletion.DryRun)
	assert.Equal(t, "MarkedForDeletion", deletion.Label)

	cfg.GetViper().Set("deletion.action_on_deletion", "label")
	deletion, err = cfg.GetDeletion()
	require.NoError(t, err)
	assert.Equal(t, "label", deletion.ActionOnDeletion)
}

func TestGetDeletionRejectsUnknownAction(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("deletion.action_on_deletion", "purge")

	_, err := cfg.GetDeletion()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quarantine or label")
}

func TestGetTokensGeneratesHolder(t *testing.T) {
	cfg := newTestConfig()

	tokens, err := cfg.GetTokens()
	require.NoError(t, err)
	assert.Equal(t, "data/locks", tokens.Dir)
	assert.Equal(t, 5*time.Minute, tokens.AcquireTimeout)
	assert.NotEmpty(t, tokens.Holder)
	assert.Contains(t, tokens.Holder, fmt.Sprintf("-%d", os.Getpid()))
}

func TestGetTokensKeepsExplicitHolder(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("tokens.holder", "worker-7")

	tokens, err := cfg.GetTokens()
	require.NoError(t, err)
	assert.Equal(t, "worker-7", tokens.Holder)
}

func TestGetTokensRejectsMalformedTimeout(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("tokens.acquire_timeout", "whenever")

	_, err := cfg.GetTokens()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tokens.acquire_timeout")
}

func TestGetTrace(t *testing.T) {
	cfg := newTestConfig()

	trace, err := cfg.GetTrace()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", trace.Type)
	assert.Equal(t, "data/classification_trace.db", trace.SQLitePath)
	assert.Equal(t, 1000, trace.MaxEntries)
	assert.Equal(t, time.Hour, trace.PruneFrequency)
}

func TestGetTraceRejectsMalformedPruneFrequency(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("trace.prune_frequency", "sometimes")

	_, err := cfg.GetTrace()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trace.prune_frequency")
}

func TestProviderConfigs(t *testing.T) {
	cfg := newTestConfig()

	bedrock := cfg.GetBedrock()
	assert.Equal(t, "us-east-1", bedrock.Region)
	assert.Equal(t, "anthropic.claude-v2", bedrock.ModelID)
	assert.Equal(t, 1000, bedrock.MaxTokens)
	assert.InDelta(t, 0.1, bedrock.Temperature, 0.001)
	assert.InDelta(t, 0.9, bedrock.TopP, 0.001)

	gemini := cfg.GetGemini()
	assert.Equal(t, "gemini-pro", gemini.ModelName)

	openAI := cfg.GetOpenAI()
	assert.Equal(t, "gpt-4", openAI.ModelName)
	assert.Empty(t, openAI.BaseURL)
}

func TestOverridesThroughViper(t *testing.T) {
	cfg := newTestConfig()
	cfg.GetViper().Set("email.folder", "Archive")
	cfg.GetViper().Set("email.fetch_limit", 10)
	cfg.GetViper().Set("classification.topics_i_care_about", []string{"golang", "security"})

	email := cfg.GetEmail()
	assert.Equal(t, "Archive", email.Folder)
	assert.Equal(t, 10, email.FetchLimit)

	class := cfg.GetClassification()
	assert.Equal(t, []string{"golang", "security"}, class.Topics)
}
