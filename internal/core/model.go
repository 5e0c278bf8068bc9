package core

import (
	"time"
)

// Category is one of the fixed triage labels
type Category string

const (
	CategoryTransactions Category = "transactions"
	CategoryFeed         Category = "feed"
	CategoryPromotions   Category = "promotions"
	CategoryInbox        Category = "inbox"
)

// Categories returns the fixed category set in index order
func Categories() []Category {
	return []Category{CategoryTransactions, CategoryFeed, CategoryPromotions, CategoryInbox}
}

// ValidCategory reports whether c is one of the fixed triage labels
func ValidCategory(c Category) bool {
	switch c {
	case CategoryTransactions, CategoryFeed, CategoryPromotions, CategoryInbox:
		return true
	}
	return false
}

// Message represents a fetched mail message. Immutable once fetched.
type Message struct {
	ID        string
	DedupKey  string
	Date      time.Time
	FromEmail string
	FromName  string
	Subject   string
	BodyText  string
	Folder    string
}

// ClassificationResult represents the outcome of classifying one message
type ClassificationResult struct {
	Category      Category
	Confidence    float64
	Method        string
	Probabilities []float64
	AnalyzedAt    time.Time
}

// TopicMatch represents how strongly a message matches the configured topics
type TopicMatch struct {
	Matched bool
	Topics  []string
	Scores  map[string]float64
	Score   float64
}

// SenderStatus classifies a sender against the configured lists
type SenderStatus string

const (
	SenderWhitelisted SenderStatus = "whitelisted"
	SenderBlacklisted SenderStatus = "blacklisted"
	SenderNeutral     SenderStatus = "neutral"
)

// Action is what the policy asks the mail transport to do with a message
type Action string

const (
	ActionQuarantine Action = "quarantine"
	ActionLabel      Action = "label"
	ActionNone       Action = "none"
)

// ActionDecision represents the policy outcome for one message
type ActionDecision struct {
	ShouldAct  bool
	Action     Action
	Reason     string
	Confidence float64
}

// WatermarkState is the persisted incremental-fetch position plus the
// bounded recent-key window used for duplicate suppression.
type WatermarkState struct {
	LatestKey     string    `json:"latestKey"`
	LatestDate    time.Time `json:"latestTimestamp"`
	LatestSubject string    `json:"latestSubject"`
	RecentKeys    []string  `json:"recentKeys"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TraceEntry is one appended record of the classification audit trace
type TraceEntry struct {
	Timestamp  time.Time
	Input      string
	Category   Category
	Confidence float64
	Method     string
}

// FetchFilters narrows a candidate fetch
type FetchFilters struct {
	UnreadOnly bool
	SinceDays  int
	After      time.Time
	Before     time.Time
}

// MailOps describes the mailbox mutations to apply to one message
type MailOps struct {
	Trash     bool
	AddLabels []string
	MarkRead  bool
	Archive   bool
}

// RunStats summarizes one triage run
type RunStats struct {
	Fetched   int
	Processed int
	Acted     int
	Routed    int
	Skipped   int
	Errors    int
	Duration  time.Duration
}
