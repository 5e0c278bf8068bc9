package core

import (
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// topicSynonyms carries known shorthand variants matched as keywords
var topicSynonyms = map[string][]string{
	"machine learning":        {"ml", "machinelearning"},
	"artificial intelligence": {"ai", "artificialintelligence"},
	"kubernetes":              {"k8s"},
}

var wordPattern = regexp.MustCompile(`\w+`)

type topicSpec struct {
	name     string
	phrases  []string
	keywords []string
}

// TopicMatcher scores messages against the configured topics of interest.
// Multi-word topics match as phrases, single-word topics as tokens, with
// known synonym variants on both.
type TopicMatcher struct {
	topics []topicSpec
	logger *zap.Logger
}

// NewTopicMatcher creates a matcher over the configured topic list
func NewTopicMatcher(topics []string, logger *zap.Logger) *TopicMatcher {
	specs := make([]topicSpec, 0, len(topics))
	for _, raw := range topics {
		topic := strings.ToLower(strings.TrimSpace(raw))
		if topic == "" {
			continue
		}
		spec := topicSpec{name: topic}
		if len(wordPattern.FindAllString(topic, -1)) > 1 {
			spec.phrases = append(spec.phrases, topic)
		} else {
			spec.keywords = append(spec.keywords, topic)
		}
		spec.keywords = append(spec.keywords, topicSynonyms[topic]...)
		specs = append(specs, spec)
	}
	logger.Info("loaded topics of interest", zap.Int("count", len(specs)))
	return &TopicMatcher{
		topics: specs,
		logger: logger,
	}
}

// Match scores a message against every topic. Phrase hits weigh subject x4
// and body x2; keyword hits weigh subject x2 and anywhere x0.5. The
// aggregate score is min(total/10, 1.0).
func (m *TopicMatcher) Match(msg *Message) *TopicMatch {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.BodyText)
	allText := subject + " " + body

	words := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(allText, -1) {
		words[w] = struct{}{}
	}

	result := &TopicMatch{
		Scores: make(map[string]float64),
	}
	total := 0.0

	for _, spec := range m.topics {
		score := 0.0
		for _, phrase := range spec.phrases {
			if !strings.Contains(allText, phrase) {
				continue
			}
			score += float64(strings.Count(subject, phrase)) * 4.0
			score += float64(strings.Count(body, phrase)) * 2.0
		}
		for _, kw := range spec.keywords {
			if _, ok := words[kw]; !ok {
				continue
			}
			score += float64(strings.Count(subject, kw)) * 2.0
			score += float64(strings.Count(allText, kw)) * 0.5
		}
		if score > 0 {
			result.Topics = append(result.Topics, spec.name)
			result.Scores[spec.name] = score
			total += score
		}
	}

	if len(result.Topics) > 0 {
		result.Matched = true
		result.Score = math.Min(total/10.0, 1.0)
		m.logger.Debug("message matched topics",
			zap.Strings("topics", result.Topics),
			zap.Float64("score", result.Score))
	}
	return result
}

// Topics returns the configured topic names
func (m *TopicMatcher) Topics() []string {
	out := make([]string, len(m.topics))
	for i, spec := range m.topics {
		out[i] = spec.name
	}
	return out
}
