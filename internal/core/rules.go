package core

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MethodRules tags results produced by the rule-based strategy
const MethodRules = "rules"

// Indicator buckets for the rule-based scorer. Keywords match anywhere in
// the lowercased subject+body text; domains match inside the sender address
// and count double.
var (
	transactionKeywords = []string{
		"invoice", "payment", "bill", "receipt", "transaction",
		"charged", "refund", "stock", "trade", "dividend",
		"statement", "balance", "due", "paid", "purchase",
		"order", "confirmation", "shipped", "delivery",
	}
	transactionDomains = []string{
		"paypal", "stripe", "bank", "zerodha", "groww",
		"amazon", "flipkart", "razorpay",
	}

	feedKeywords = []string{
		"newsletter", "digest", "weekly", "daily", "tutorial",
		"launch", "announcement", "update", "blog", "article",
		"podcast", "episode", "issue", "edition",
	}
	feedDomains = []string{
		"substack", "medium", "beehiiv", "buttondown",
		"mailchimp", "convertkit",
	}

	promoKeywords = []string{
		"sale", "discount", "offer", "deal", "limited time",
		"buy now", "shop", "coupon", "free shipping",
		"%off", "save", "clearance", "exclusive",
	}
	promoDomains = []string{
		"marketing", "promo", "offers",
	}
)

// Rules is the rule-based classification strategy: weighted keyword and
// sender-domain buckets plus an unsubscribe heuristic. It does no I/O and
// cannot fail.
type Rules struct {
	maxBodyLength int
	logger        *zap.Logger
}

// NewRules creates the rule-based strategy
func NewRules(maxBodyLength int, logger *zap.Logger) *Rules {
	if maxBodyLength <= 0 {
		maxBodyLength = 1000
	}
	return &Rules{
		maxBodyLength: maxBodyLength,
		logger:        logger,
	}
}

// Classify scores the three actionable buckets and falls through to inbox
// when no bucket reaches the minimum score of 2.
func (r *Rules) Classify(msg *Message) *ClassificationResult {
	subject := strings.ToLower(sanitizeText(msg.Subject))
	body := strings.ToLower(sanitizeText(msg.BodyText))
	fromEmail := strings.ToLower(sanitizeText(msg.FromEmail))

	text := subject + " " + truncateRunes(body, r.maxBodyLength)

	scores := map[Category]int{
		CategoryTransactions: bucketScore(text, fromEmail, transactionKeywords, transactionDomains),
		CategoryFeed:         bucketScore(text, fromEmail, feedKeywords, feedDomains),
		CategoryPromotions:   bucketScore(text, fromEmail, promoKeywords, promoDomains),
	}

	// An unsubscribe link marks a mailing list: a newsletter when feed
	// keywords fired, otherwise promotional.
	if strings.Contains(text, "unsubscribe") || strings.Contains(text, "opt-out") {
		if scores[CategoryFeed] > 0 {
			scores[CategoryFeed] += 2
		} else {
			scores[CategoryPromotions] += 3
		}
	}

	category := CategoryInbox
	maxScore := 0
	for _, c := range []Category{CategoryTransactions, CategoryFeed, CategoryPromotions} {
		if scores[c] > maxScore {
			maxScore = scores[c]
			category = c
		}
	}

	var confidence float64
	if maxScore >= 2 {
		confidence = 0.5 + 0.1*float64(maxScore)
		if confidence > 0.95 {
			confidence = 0.95
		}
	} else {
		category = CategoryInbox
		confidence = 0.6
	}

	r.logger.Debug("rule-based classification",
		zap.String("category", string(category)),
		zap.Float64("confidence", confidence),
		zap.Int("transactions", scores[CategoryTransactions]),
		zap.Int("feed", scores[CategoryFeed]),
		zap.Int("promotions", scores[CategoryPromotions]))

	return &ClassificationResult{
		Category:   category,
		Confidence: confidence,
		Method:     MethodRules,
		AnalyzedAt: time.Now(),
	}
}

func bucketScore(text, fromEmail string, keywords, domains []string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	for _, domain := range domains {
		if strings.Contains(fromEmail, domain) {
			score += 2
		}
	}
	return score
}

// sanitizeText collapses all whitespace runs into single spaces and trims
func sanitizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes caps a string at n runes without splitting a code point
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// classificationInput renders the fixed template shared by the inference
// backends and the audit trace
func classificationInput(msg *Message, maxBodyLength int) string {
	subject := strings.ToLower(sanitizeText(msg.Subject))
	fromName := strings.ToLower(sanitizeText(msg.FromName))
	fromEmail := strings.ToLower(sanitizeText(msg.FromEmail))
	body := truncateRunes(strings.ToLower(sanitizeText(msg.BodyText)), maxBodyLength)
	return fmt.Sprintf("[SUBJECT] %s [SENDER] %s <%s> [BODY] %s", subject, fromName, fromEmail, body)
}
