package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRulesClassifyScenarios(t *testing.T) {
	rules := NewRules(1000, zap.NewNop())

	tests := []struct {
		name      string
		subject   string
		body      string
		fromEmail string
		category  Category
	}{
		{
			name:      "amazon invoice",
			subject:   "Your invoice from Amazon",
			fromEmail: "no-reply@amazon.com",
			category:  CategoryTransactions,
		},
		{
			name:      "tech digest newsletter",
			subject:   "Weekly Tech Digest",
			body:      "Top stories this week. Click here to unsubscribe.",
			fromEmail: "newsletter@techcrunch.com",
			category:  CategoryFeed,
		},
		{
			name:      "limited time promotion",
			subject:   "50% OFF - Limited Time Offer!",
			fromEmail: "marketing@store.com",
			category:  CategoryPromotions,
		},
		{
			name:      "plain correspondence",
			subject:   "Re: Meeting tomorrow",
			fromEmail: "friend@gmail.com",
			category:  CategoryInbox,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rules.Classify(&Message{
				Subject:   tt.subject,
				BodyText:  tt.body,
				FromEmail: tt.fromEmail,
			})
			assert.Equal(t, tt.category, result.Category)
			assert.Equal(t, MethodRules, result.Method)
		})
	}
}

func TestRulesClassifyConfidence(t *testing.T) {
	rules := NewRules(1000, zap.NewNop())

	// invoice + payment + amazon domain scores 4
	scored := rules.Classify(&Message{
		Subject:   "Invoice and payment details",
		FromEmail: "no-reply@amazon.com",
	})
	assert.Equal(t, CategoryTransactions, scored.Category)
	assert.InDelta(t, 0.9, scored.Confidence, 1e-9)

	fallback := rules.Classify(&Message{
		Subject:   "Hello again",
		FromEmail: "friend@gmail.com",
	})
	assert.Equal(t, CategoryInbox, fallback.Category)
	assert.InDelta(t, 0.6, fallback.Confidence, 1e-9)
}

func TestRulesClassifyConfidenceCapped(t *testing.T) {
	rules := NewRules(1000, zap.NewNop())

	result := rules.Classify(&Message{
		Subject:   "Sale discount offer deal coupon clearance exclusive",
		BodyText:  "Buy now, save with free shipping, limited time",
		FromEmail: "team@promo-offers-marketing.example",
	})
	assert.Equal(t, CategoryPromotions, result.Category)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
}

func TestRulesUnsubscribeHeuristic(t *testing.T) {
	rules := NewRules(1000, zap.NewNop())

	// No feed keywords: unsubscribe alone pushes promotions over the bar.
	promo := rules.Classify(&Message{
		Subject:   "Things you might like",
		BodyText:  "Unsubscribe at any time.",
		FromEmail: "hello@shop.example.com",
	})
	assert.Equal(t, CategoryPromotions, promo.Category)

	// With a feed keyword present the same link reinforces feed instead.
	feed := rules.Classify(&Message{
		Subject:   "Your weekly digest",
		BodyText:  "Opt-out link below.",
		FromEmail: "posts@example.com",
	})
	assert.Equal(t, CategoryFeed, feed.Category)
}

func TestRulesSingleHitFallsToInbox(t *testing.T) {
	rules := NewRules(1000, zap.NewNop())

	result := rules.Classify(&Message{
		Subject:   "The order of service for the ceremony",
		FromEmail: "friend@gmail.com",
	})
	assert.Equal(t, CategoryInbox, result.Category)
}

func TestRulesBodyTruncation(t *testing.T) {
	rules := NewRules(50, zap.NewNop())

	// Keywords beyond the cap are invisible to the scorer.
	body := strings.Repeat("x", 60) + " invoice payment receipt"
	result := rules.Classify(&Message{
		Subject:   "FYI",
		BodyText:  body,
		FromEmail: "friend@gmail.com",
	})
	assert.Equal(t, CategoryInbox, result.Category)
}

func TestClassificationInputTemplate(t *testing.T) {
	msg := &Message{
		Subject:   "Big\tNews",
		FromName:  "Jane Doe",
		FromEmail: "JANE@Example.COM",
		BodyText:  "Hello   world",
	}
	got := classificationInput(msg, 1000)
	assert.Equal(t, "[SUBJECT] big news [SENDER] jane doe <jane@example.com> [BODY] hello world", got)
}
