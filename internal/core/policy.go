package core

import (
	"go.uber.org/zap"
)

// topicOverrideThreshold is the minimum aggregate topic score that
// preserves a promotional message. Weaker matches (a single body
// mention scores 0.05) are treated as noise and do not block action.
const topicOverrideThreshold = 0.15

// ActionPolicy decides whether a classified message should be acted
// on. Rules are ordered and the first match wins; sender status
// dominates category, and only promotional messages are ever
// actionable.
type ActionPolicy struct {
	defaultAction   Action
	actOnPromotions bool
	logger          *zap.Logger
}

// NewActionPolicy creates an action policy. defaultAction is the
// configured action applied when a rule decides to act.
func NewActionPolicy(defaultAction Action, actOnPromotions bool, logger *zap.Logger) *ActionPolicy {
	return &ActionPolicy{
		defaultAction:   defaultAction,
		actOnPromotions: actOnPromotions,
		logger:          logger,
	}
}

// Decide evaluates the ordered decision rules for one message.
func (p *ActionPolicy) Decide(class *ClassificationResult, topics *TopicMatch, sender SenderStatus) *ActionDecision {
	if sender == SenderWhitelisted {
		return &ActionDecision{
			ShouldAct:  false,
			Action:     ActionNone,
			Reason:     "sender whitelisted",
			Confidence: 1.0,
		}
	}

	if sender == SenderBlacklisted {
		return &ActionDecision{
			ShouldAct:  true,
			Action:     p.defaultAction,
			Reason:     "sender blacklisted",
			Confidence: 1.0,
		}
	}

	if class.Category != CategoryPromotions {
		return &ActionDecision{
			ShouldAct:  false,
			Action:     ActionNone,
			Reason:     "category preserved",
			Confidence: 1.0,
		}
	}

	if !p.actOnPromotions {
		return &ActionDecision{
			ShouldAct:  false,
			Action:     ActionNone,
			Reason:     "promotions action disabled",
			Confidence: 1.0,
		}
	}

	if topics != nil && topics.Matched {
		if topics.Score >= topicOverrideThreshold {
			return &ActionDecision{
				ShouldAct:  false,
				Action:     ActionNone,
				Reason:     "topic override",
				Confidence: 1.0,
			}
		}
		p.logger.Info("weak topic match, proceeding",
			zap.Strings("topics", topics.Topics),
			zap.Float64("score", topics.Score))
	}

	return &ActionDecision{
		ShouldAct:  true,
		Action:     p.defaultAction,
		Reason:     "category met criteria",
		Confidence: class.Confidence,
	}
}
