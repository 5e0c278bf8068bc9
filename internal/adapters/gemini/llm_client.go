package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the InferenceClient interface using
// Google Gemini
type GeminiClient struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
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

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) (*GeminiClient, error) {
	// Create a new Gemini client
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Create a generative model
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:       client,
		model:        model,
		modelName:    modelName,
		maxTokens:    maxTokens,
		temperature:  temperature,
		topP:         topP,
		maxBodySize:  maxBodySize,
		logger:       logger,
		promptFormat: categoryPromptFormat,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// truncateBody truncates the email body if it exceeds the maximum size
func (c *GeminiClient) truncateBody(body string) string {
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
func (c *GeminiClient) ClassifyEmail(ctx context.Context, msg *core.Message) (*core.ClassificationResult, error) {
	// Truncate the body if needed
	truncatedBody := c.truncateBody(msg.BodyText)

	prompt := fmt.Sprintf(c.promptFormat, msg.FromName, msg.FromEmail, msg.Subject, truncatedBody)

	// Call Gemini API
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	// Extract the response text
	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

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
		Method:        "gemini",
		Probabilities: parsed.Probabilities,
		AnalyzedAt:    time.Now(),
	}, nil
}
