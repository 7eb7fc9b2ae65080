package model

import (
	"time"
)

// Intent classifies what the user is trying to do with a query.
type Intent string

const (
	IntentLearning       Intent = "learning"
	IntentProblemSolving Intent = "problem-solving"
	IntentExploration    Intent = "exploration"
	IntentComparison     Intent = "comparison"
)

// Complexity classifies how advanced a query is.
type Complexity string

const (
	ComplexityBeginner     Complexity = "beginner"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// Scope is how far predicted follow-ups may range from the literal query.
type Scope string

const (
	ScopeNarrow Scope = "narrow"
	ScopeMedium Scope = "medium"
	ScopeWide   Scope = "wide"
)

// PredictionType tags a predicted Q&A item.
type PredictionType string

const (
	PredictionFollowUp    PredictionType = "follow-up"
	PredictionRelated     PredictionType = "related"
	PredictionApplication PredictionType = "application"
	PredictionComparison  PredictionType = "comparison"
	PredictionBridge      PredictionType = "bridge"
)

// Valid reports whether t is one of the known prediction types.
func (t PredictionType) Valid() bool {
	switch t {
	case PredictionFollowUp, PredictionRelated, PredictionApplication, PredictionComparison, PredictionBridge:
		return true
	}
	return false
}

// TopicAnalysis is the classification of a single query.
type TopicAnalysis struct {
	MainTopic      string     `json:"mainTopic"`
	SubTopics      []string   `json:"subTopics"`
	Intent         Intent     `json:"intent"`
	Complexity     Complexity `json:"complexity"`
	RelatedDomains []string   `json:"relatedDomains"`
}

// PolicyConfig controls how many predictions are requested and how far they range.
type PolicyConfig struct {
	PredictionScope        Scope   `json:"predictionScope"`
	PredictionsPerQuery    int     `json:"predictionsPerQuery"`
	MinConfidenceThreshold float64 `json:"minConfidenceThreshold"`
	EnableBridgePrompts    bool    `json:"enableBridgePrompts"`
}

// ExpectedFormatJSON is the only response format the prompts request.
const ExpectedFormatJSON = "json"

// MasterPrompt is a two-part prompt handed to the LLM collaborator.
type MasterPrompt struct {
	SystemPrompt   string `json:"systemPrompt"`
	UserPrompt     string `json:"userPrompt"`
	ExpectedFormat string `json:"expectedFormat"`
}

// PredictedQA is one predicted follow-up question with its answer.
type PredictedQA struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Topic      string         `json:"topic"`
	Confidence float64        `json:"confidence"`
	Type       PredictionType `json:"type"`
}

// ResponseMetadata describes how a prediction batch was produced.
type ResponseMetadata struct {
	GeneratedAt      time.Time `json:"generatedAt"`
	ModelUsed        string    `json:"modelUsed"`
	TotalTokens      int       `json:"totalTokens"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

// PredictionResponse is the answer to a query plus its predicted follow-ups.
type PredictionResponse struct {
	OriginalQuery string           `json:"originalQuery"`
	MainTopic     string           `json:"mainTopic"`
	DirectAnswer  string           `json:"directAnswer,omitempty"`
	Bridge        string           `json:"bridge,omitempty"`
	Predictions   []PredictedQA    `json:"predictions"`
	Metadata      ResponseMetadata `json:"metadata"`

	// Populated per request, never cached.
	Cached       bool          `json:"cached"`
	BridgePrompt *MasterPrompt `json:"bridgePrompt,omitempty"`
}

// AverageConfidence returns the mean confidence of the predictions, or 0 if there are none.
func (r *PredictionResponse) AverageConfidence() float64 {
	if len(r.Predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range r.Predictions {
		sum += p.Confidence
	}
	return sum / float64(len(r.Predictions))
}

// PredictionRequest is a single call into the engine.
type PredictionRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Tier      string `json:"tier,omitempty"`
}

// EngineMetrics is a read-only snapshot of engine counters.
type EngineMetrics struct {
	PredictionsGenerated int      `json:"predictionsGenerated"`
	CacheHits            int      `json:"cacheHits"`
	CacheMisses          int      `json:"cacheMisses"`
	APICallsSaved        int      `json:"apiCallsSaved"`
	AverageConfidence    float64  `json:"averageConfidence"`
	TopPredictedTopics   []string `json:"topPredictedTopics"`
	HitRate              float64  `json:"hitRate"`
	EstimatedSavings     float64  `json:"estimatedSavings"`
}

// RetentionMetric tracks how often a normalized query has been asked.
type RetentionMetric struct {
	Query      string    `json:"query"`
	Frequency  int       `json:"frequency"`
	FirstAsked time.Time `json:"firstAsked"`
	LastAsked  time.Time `json:"lastAsked"`
	Promoted   bool      `json:"promoted"`
}
