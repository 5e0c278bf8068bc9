package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/core"
)

// CliDetector runs the full triage decision chain over a single message
// and prints a sectioned report to stdout
type CliDetector struct {
	classifier *core.Classifier
	topics     *core.TopicMatcher
	senders    *core.SenderPolicy
	policy     *core.ActionPolicy
	logger     *zap.Logger
	verbose    bool
}

// NewCliDetector creates a new CLI detector
func NewCliDetector(
	classifier *core.Classifier,
	topics *core.TopicMatcher,
	senders *core.SenderPolicy,
	policy *core.ActionPolicy,
	logger *zap.Logger,
	verbose bool,
) (*CliDetector, error) {
	return &CliDetector{
		classifier: classifier,
		topics:     topics,
		senders:    senders,
		policy:     policy,
		logger:     logger,
		verbose:    verbose,
	}, nil
}

// ProcessMessage classifies a message, evaluates topics, sender lists
// and the action policy, and displays the results
func (d *CliDetector) ProcessMessage(ctx context.Context, msg *core.Message) (*core.ActionDecision, error) {
	d.logger.Debug("processing message", zap.String("from", msg.FromEmail))

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", formatFrom(msg))
	fmt.Printf("Subject: %s\n", msg.Subject)
	if !msg.Date.IsZero() {
		fmt.Printf("Date: %s\n", msg.Date.Format(time.RFC1123Z))
	}
	fmt.Printf("Body length: %d bytes\n", len(msg.BodyText))

	if d.verbose {
		preview := msg.BodyText
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Classifying message...\n")
	startTime := time.Now()

	class := d.classifier.Classify(ctx, msg)
	topicMatch := d.topics.Match(msg)
	senderStatus := d.senders.Status(msg.FromEmail)
	decision := d.policy.Decide(class, topicMatch, senderStatus)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Category: %s\n", class.Category)
	fmt.Printf("Confidence: %.4f\n", class.Confidence)
	fmt.Printf("Method: %s\n", class.Method)
	if topicMatch.Matched {
		fmt.Printf("Topics matched: %s (score %.2f)\n", strings.Join(topicMatch.Topics, ", "), topicMatch.Score)
	} else {
		fmt.Printf("Topics matched: none\n")
	}
	fmt.Printf("Sender status: %s\n", senderStatus)
	fmt.Printf("Should act: %t\n", decision.ShouldAct)
	if decision.ShouldAct {
		fmt.Printf("Action: %s\n", decision.Action)
	}
	fmt.Printf("Reason: %s\n", decision.Reason)
	fmt.Printf("Processing time: %v\n", duration)

	return decision, nil
}

func formatFrom(msg *core.Message) string {
	if msg.FromName == "" {
		return msg.FromEmail
	}
	return fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
}
