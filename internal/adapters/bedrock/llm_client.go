package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the InferenceClient interface using
// Amazon Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	promptFormat  string
	textProcessor *utils.TextProcessor
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

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  categoryPromptFormat,
	}
}

// ClassifyEmail classifies an email into one of the triage categories
func (c *BedrockClient) ClassifyEmail(ctx context.Context, msg *core.Message) (*core.ClassificationResult, error) {
	// Process the body (sanitize, normalize, truncate)
	processedBody := c.textProcessor.ProcessText(msg.BodyText, c.maxBodySize)

	prompt := fmt.Sprintf(c.promptFormat, msg.FromName, msg.FromEmail, msg.Subject, processedBody)

	// Create the request based on the model family
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	// Call Bedrock API
	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	// Parse the response based on the model family
	var responseText string

	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		responseText = claudeResp.Completion
	} else if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return nil, fmt.Errorf("empty response from Titan model")
		}
		responseText = titanResp.Results[0].OutputText
	} else {
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		if genericResp.Output != "" {
			responseText = genericResp.Output
		} else if genericResp.Text != "" {
			responseText = genericResp.Text
		} else if genericResp.Response != "" {
			responseText = genericResp.Response
		} else {
			responseText = string(resp.Body)
		}
	}

	return parseClassification(responseText, "bedrock")
}

// parseClassification parses the model's JSON reply into a classification
// result, tolerating prose around the object
func parseClassification(responseText, method string) (*core.ClassificationResult, error) {
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
		Method:        method,
		Probabilities: parsed.Probabilities,
		AnalyzedAt:    time.Now(),
	}, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
