package analyzer

import (
	"strings"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

// Disabled is used when prefetching is turned off. It applies no heuristics
// and classifies every query as intermediate exploration.
type Disabled struct{}

// NewDisabled creates a no-op analyzer.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Analyze returns the trimmed, lowercased query as the topic.
func (d *Disabled) Analyze(query string) model.TopicAnalysis {
	topic := strings.ToLower(strings.TrimSpace(query))
	if topic == "" {
		topic = DefaultTopic
	}
	return model.TopicAnalysis{
		MainTopic:      topic,
		SubTopics:      []string{},
		Intent:         model.IntentExploration,
		Complexity:     model.ComplexityIntermediate,
		RelatedDomains: []string{},
	}
}
