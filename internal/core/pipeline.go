package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/tokens"
)

// TriageOptions carries the run-shaping settings for the pipeline.
type TriageOptions struct {
	Folder       string
	FetchLimit   int
	UnreadOnly   bool
	SinceDays    int
	DryRun       bool
	Label        string
	TokenTimeout time.Duration
}

// TriageService drives one triage pass over the mailbox: fetch new
// candidates, classify, decide, act, and commit the watermark. A pass
// holds the mail-connection token for its whole duration so that
// watermark mutations stay serialized across processes.
type TriageService struct {
	mail       MailClient
	classifier *Classifier
	topics     *TopicMatcher
	senders    *SenderPolicy
	policy     *ActionPolicy
	gate       *FetchGate
	tokens     *tokens.Manager
	opts       TriageOptions
	logger     *zap.Logger
}

// NewTriageService creates the triage pipeline from its collaborators.
func NewTriageService(
	mail MailClient,
	classifier *Classifier,
	topics *TopicMatcher,
	senders *SenderPolicy,
	policy *ActionPolicy,
	gate *FetchGate,
	tokenManager *tokens.Manager,
	opts TriageOptions,
	logger *zap.Logger,
) *TriageService {
	return &TriageService{
		mail:       mail,
		classifier: classifier,
		topics:     topics,
		senders:    senders,
		policy:     policy,
		gate:       gate,
		tokens:     tokenManager,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes one triage pass. Messages whose action fails are not
// committed and will be re-fetched on the next pass.
func (s *TriageService) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}

	if err := s.tokens.Acquire(ctx, tokens.KindMailConnection, s.opts.TokenTimeout); err != nil {
		return nil, fmt.Errorf("failed to acquire mail token: %w", err)
	}
	defer s.tokens.Release(tokens.KindMailConnection)

	filters := FetchFilters{
		UnreadOnly: s.opts.UnreadOnly,
		SinceDays:  s.fetchWindow(ctx),
	}

	messages, err := s.mail.FetchCandidates(ctx, s.opts.Folder, s.opts.FetchLimit, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	stats.Fetched = len(messages)
	s.logger.Info("fetched candidate messages",
		zap.Int("count", len(messages)),
		zap.Int("since_days", filters.SinceDays))

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		if !s.gate.IsCandidate(ctx, msg) {
			stats.Skipped++
			continue
		}

		if err := s.processMessage(ctx, msg, stats); err != nil {
			stats.Errors++
			s.logger.Error("message processing failed",
				zap.String("id", msg.ID),
				zap.String("subject", msg.Subject),
				zap.Error(err))
			continue
		}
		stats.Processed++

		if err := s.gate.Commit(ctx, msg); err != nil {
			stats.Errors++
			s.logger.Error("watermark commit failed",
				zap.String("id", msg.ID),
				zap.Error(err))
		}
	}

	stats.Duration = time.Since(start)
	s.logRunSummary(stats)
	return stats, nil
}

// RunHistorical re-triages a past date range across all folders. It
// only ever applies the label action so that nothing is trashed or
// re-routed in bulk, and it never advances the watermark.
func (s *TriageService) RunHistorical(ctx context.Context, startDate, endDate time.Time) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}

	if err := s.tokens.Acquire(ctx, tokens.KindMailConnection, s.opts.TokenTimeout); err != nil {
		return nil, fmt.Errorf("failed to acquire mail token: %w", err)
	}
	defer s.tokens.Release(tokens.KindMailConnection)

	folders, err := s.mail.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	filters := FetchFilters{After: startDate, Before: endDate}

	for _, folder := range folders {
		if skipHistoricalFolder(folder) {
			continue
		}

		messages, err := s.mail.FetchCandidates(ctx, folder, s.opts.FetchLimit, filters)
		if err != nil {
			stats.Errors++
			s.logger.Error("historical fetch failed",
				zap.String("folder", folder),
				zap.Error(err))
			continue
		}
		stats.Fetched += len(messages)
		s.logger.Info("fetched historical messages",
			zap.String("folder", folder),
			zap.Int("count", len(messages)))

		for _, msg := range messages {
			if err := ctx.Err(); err != nil {
				stats.Duration = time.Since(start)
				return stats, err
			}

			class := s.classifier.Classify(ctx, msg)
			topics := s.topics.Match(msg)
			sender := s.senders.Status(msg.FromEmail)
			decision := s.policy.Decide(class, topics, sender)
			stats.Processed++

			if !decision.ShouldAct {
				continue
			}
			if s.opts.DryRun {
				s.logger.Info("dry run, historical label not applied",
					zap.String("subject", msg.Subject),
					zap.String("reason", decision.Reason))
				stats.Acted++
				continue
			}
			ops := MailOps{AddLabels: []string{s.opts.Label}}
			if err := s.mail.PerformAction(ctx, msg.ID, ops); err != nil {
				stats.Errors++
				s.logger.Error("historical label failed",
					zap.String("id", msg.ID),
					zap.Error(err))
				continue
			}
			stats.Acted++
		}
	}

	stats.Duration = time.Since(start)
	s.logRunSummary(stats)
	return stats, nil
}

// fetchWindow computes how many days back to fetch. When a watermark
// exists the window is recomputed to reach just past it, so a fresh
// watermark shrinks the window and a stale one widens it to close the
// gap.
func (s *TriageService) fetchWindow(ctx context.Context) int {
	window := s.opts.SinceDays
	if window < 1 {
		window = 1
	}

	wm := s.gate.Watermark(ctx)
	if wm.LatestKey == "" || wm.LatestDate.IsZero() {
		return window
	}

	days := int(time.Since(wm.LatestDate).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	s.logger.Info("incremental fetch from watermark",
		zap.Time("latest", wm.LatestDate),
		zap.Int("since_days", days))
	return days
}

func (s *TriageService) processMessage(ctx context.Context, msg *Message, stats *RunStats) error {
	class := s.classifier.Classify(ctx, msg)
	topics := s.topics.Match(msg)
	sender := s.senders.Status(msg.FromEmail)
	decision := s.policy.Decide(class, topics, sender)

	s.logger.Info("message triaged",
		zap.String("subject", msg.Subject),
		zap.String("category", string(class.Category)),
		zap.Float64("confidence", class.Confidence),
		zap.String("method", class.Method),
		zap.String("sender_status", string(sender)),
		zap.Bool("should_act", decision.ShouldAct),
		zap.String("reason", decision.Reason))

	if decision.ShouldAct {
		return s.applyAction(ctx, msg, decision, stats)
	}
	return s.route(ctx, msg, class.Category, decision, stats)
}

func (s *TriageService) applyAction(ctx context.Context, msg *Message, decision *ActionDecision, stats *RunStats) error {
	var ops MailOps
	switch decision.Action {
	case ActionQuarantine:
		ops.Trash = true
	case ActionLabel:
		ops.AddLabels = []string{s.opts.Label}
	default:
		return fmt.Errorf("unsupported action %q", decision.Action)
	}

	if s.opts.DryRun {
		s.logger.Info("dry run, action not applied",
			zap.String("action", string(decision.Action)),
			zap.String("subject", msg.Subject),
			zap.String("reason", decision.Reason))
		stats.Acted++
		return nil
	}

	if err := s.mail.PerformAction(ctx, msg.ID, ops); err != nil {
		return fmt.Errorf("failed to apply %s: %w", decision.Action, err)
	}
	s.logger.Info("action applied",
		zap.String("action", string(decision.Action)),
		zap.String("subject", msg.Subject),
		zap.String("reason", decision.Reason))
	stats.Acted++
	return nil
}

// route applies the secondary routing that runs regardless of the
// act decision: transactions and feed messages leave the inbox as
// read, everything else stays put.
func (s *TriageService) route(ctx context.Context, msg *Message, category Category, decision *ActionDecision, stats *RunStats) error {
	switch category {
	case CategoryTransactions, CategoryFeed:
		if s.opts.DryRun {
			s.logger.Info("dry run, routing not applied",
				zap.String("category", string(category)),
				zap.String("subject", msg.Subject))
			stats.Routed++
			return nil
		}
		ops := MailOps{MarkRead: true, Archive: true}
		if err := s.mail.PerformAction(ctx, msg.ID, ops); err != nil {
			return fmt.Errorf("failed to route %s message: %w", category, err)
		}
		s.logger.Info("routed to archive",
			zap.String("category", string(category)),
			zap.String("subject", msg.Subject))
		stats.Routed++
	case CategoryPromotions:
		s.logger.Info("promotional message preserved",
			zap.String("subject", msg.Subject),
			zap.String("reason", decision.Reason))
	default:
		s.logger.Debug("no routing action",
			zap.String("category", string(category)),
			zap.String("subject", msg.Subject))
	}
	return nil
}

func (s *TriageService) logRunSummary(stats *RunStats) {
	s.logger.Info("triage run complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("processed", stats.Processed),
		zap.Int("acted", stats.Acted),
		zap.Int("routed", stats.Routed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors),
		zap.Duration("duration", stats.Duration))
}

func skipHistoricalFolder(folder string) bool {
	switch folder {
	case "TRASH", "SPAM", "Trash", "Spam":
		return true
	}
	return false
}
