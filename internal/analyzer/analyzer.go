// Package analyzer classifies queries by topic, intent and complexity.
package analyzer

import (
	"strings"
	"unicode"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

// Analyzer turns query text into a topic classification.
// Implementations must be total over all input strings.
type Analyzer interface {
	Analyze(query string) model.TopicAnalysis
}

// DefaultTopic is used when nothing is left of a query after stripping.
const DefaultTopic = "general"

var leadingPhrases = []string{
	"what is",
	"how to",
	"explain",
	"tell me about",
	"describe",
	"compare",
	"vs",
	"difference between",
}

var advancedKeywords = []string{"optimize", "architecture", "implementation", "theory", "analysis", "compare", "vs", "difference"}

var intermediateKeywords = []string{"how to", "example", "use", "create", "build"}

var (
	comparisonKeywords     = []string{"vs", "compare", "difference"}
	problemSolvingKeywords = []string{"fix", "error", "solve", "bug"}
	learningKeywords       = []string{"what is", "explain", "define"}
)

var subTopicSeparators = []string{" and ", ",", " with ", " in "}

// domainKeywords maps a keyword found in the query to a related domain.
var domainKeywords = []struct {
	keyword string
	domain  string
}{
	{"neural", "machine learning"},
	{"model", "machine learning"},
	{"learning", "machine learning"},
	{"quantum", "physics"},
	{"algorithm", "computer science"},
	{"database", "data engineering"},
	{"sql", "data engineering"},
	{"network", "networking"},
	{"security", "security"},
	{"cloud", "infrastructure"},
	{"kubernetes", "infrastructure"},
	{"finance", "finance"},
	{"market", "economics"},
	{"calculus", "mathematics"},
	{"algebra", "mathematics"},
	{"statistic", "mathematics"},
	{"biology", "life sciences"},
	{"chemistry", "chemistry"},
}

// Heuristic is the deterministic keyword analyzer.
type Heuristic struct{}

// NewHeuristic creates a keyword analyzer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Analyze classifies the query. Identical input always yields identical output.
func (h *Heuristic) Analyze(query string) model.TopicAnalysis {
	lower := strings.ToLower(strings.TrimSpace(query))
	mainTopic := extractMainTopic(lower)

	return model.TopicAnalysis{
		MainTopic:      mainTopic,
		SubTopics:      subTopics(mainTopic),
		Intent:         classifyIntent(lower),
		Complexity:     classifyComplexity(lower),
		RelatedDomains: relatedDomains(lower),
	}
}

func extractMainTopic(lower string) string {
	topic := trimPunctuation(lower)
	for stripped := true; stripped; {
		stripped = false
		for _, phrase := range leadingPhrases {
			if rest, ok := cutLeadingPhrase(topic, phrase); ok {
				topic = trimPunctuation(rest)
				stripped = true
			}
		}
	}
	if topic == "" {
		return DefaultTopic
	}
	return topic
}

// cutLeadingPhrase strips phrase from s when it is followed by a word boundary.
func cutLeadingPhrase(s, phrase string) (string, bool) {
	rest, ok := strings.CutPrefix(s, phrase)
	if !ok {
		return s, false
	}
	if rest != "" {
		r := []rune(rest)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return s, false
		}
	}
	return rest, true
}

func trimPunctuation(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

func classifyComplexity(lower string) model.Complexity {
	switch {
	case containsAny(lower, advancedKeywords):
		return model.ComplexityAdvanced
	case containsAny(lower, intermediateKeywords):
		return model.ComplexityIntermediate
	default:
		return model.ComplexityBeginner
	}
}

func classifyIntent(lower string) model.Intent {
	switch {
	case containsAny(lower, comparisonKeywords):
		return model.IntentComparison
	case containsAny(lower, problemSolvingKeywords):
		return model.IntentProblemSolving
	case containsAny(lower, learningKeywords):
		return model.IntentLearning
	default:
		return model.IntentExploration
	}
}

func subTopics(mainTopic string) []string {
	parts := []string{mainTopic}
	for _, sep := range subTopicSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	if len(parts) < 2 {
		return []string{}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = trimPunctuation(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func relatedDomains(lower string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, dk := range domainKeywords {
		if strings.Contains(lower, dk.keyword) && !seen[dk.domain] {
			seen[dk.domain] = true
			out = append(out, dk.domain)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
