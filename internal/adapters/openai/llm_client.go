package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the InferenceClient interface using
// OpenAI or any API-compatible endpoint
type OpenAIClient struct {
	client       *openai.Client
	modelName    string
	maxTokens    int
	temperature  float32
	maxBodySize  int
	logger       *zap.Logger
	promptFormat string
}

// ClassificationResponse represents the structured response from the model
type ClassificationResponse struct {
	Category      string    `json:"category"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}

const categoryPromptFormat = `You are an email triage assistant. Classify the following email into exactly one category:
- transactions: bills, receipts, orders, banking or brokerage notices
- feed: newsletters, digests, blog or product announcements
- promotions: marketing, sales, discounts, bulk offers
- inbox: personal or work correspondence that fits none of the above

Respond with a JSON object containing:
- category: string (one of "transactions", "feed", "promotions", "inbox")
- confidence: number between 0 and 1 (how confident you are in the category)
- probabilities: array of 4 numbers (probability per category, in the order above)

Email:
From: %s <%s>
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// NewOpenAIClient creates a new OpenAI client. A non-empty baseURL points
// the client at a compatible local endpoint instead.
func NewOpenAIClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	return &OpenAIClient{
		client:       client,
		modelName:    modelName,
		maxTokens:    maxTokens,
		temperature:  temperature,
		maxBodySize:  maxBodySize,
		logger:       logger,
		promptFormat: categoryPromptFormat,
	}
}

// truncateBody truncates the email body if it exceeds the maximum size
func (c *OpenAIClient) truncateBody(body string) string {
	if c.maxBodySize <= 0 || len(body) <= c.maxBodySize {
		return body
	}

	truncated := body[:c.maxBodySize]
	c.logger.Debug("Email body truncated",
		zap.Int("original_size", len(body)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", c.maxBodySize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// ClassifyEmail classifies an email into one of the triage categories
func (c *OpenAIClient) ClassifyEmail(ctx context.Context, msg *core.Message) (*core.ClassificationResult, error) {
	// Truncate the body if needed
	truncatedBody := c.truncateBody(msg.BodyText)

	prompt := fmt.Sprintf(c.promptFormat, msg.FromName, msg.FromEmail, msg.Subject, truncatedBody)

	// Create the request
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	// Ask for a JSON response where the endpoint supports it
	responseFormat := openai.ChatCompletionResponseFormat{
		Type: "json_object",
	}
	req.ResponseFormat = &responseFormat

	// Call OpenAI API
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	// Extract the response text
	responseText := resp.Choices[0].Message.Content

	// Parse the model's JSON response
	var parsed ClassificationResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStr, exErr := utils.ExtractJSON(responseText)
		if exErr != nil {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}

	category := core.Category(strings.ToLower(strings.TrimSpace(parsed.Category)))
	if !core.ValidCategory(category) {
		return nil, fmt.Errorf("model returned unknown category %q", parsed.Category)
	}

	return &core.ClassificationResult{
		Category:      category,
		Confidence:    parsed.Confidence,
		Method:        "openai",
		Probabilities: parsed.Probabilities,
		AnalyzedAt:    time.Now(),
	}, nil
}
