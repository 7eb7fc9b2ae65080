// Package scope derives the prediction policy for a classified query.
package scope

import (
	"strings"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

const (
	beginnerMaxPredictions = 10
	advancedMinPredictions = 20
	premiumMultiplier      = 1.5
)

// DefaultPolicy returns the policy used when nothing overrides it.
func DefaultPolicy() model.PolicyConfig {
	return model.PolicyConfig{
		PredictionScope:        model.ScopeMedium,
		PredictionsPerQuery:    15,
		MinConfidenceThreshold: 0.7,
		EnableBridgePrompts:    true,
	}
}

// Calculate merges the analysis-driven policy onto defaults.
//
// Rules apply in a fixed order: complexity sets scope and count, intent then
// overrides scope, and finally the tier multiplier scales the count.
func Calculate(analysis model.TopicAnalysis, tier string, defaults model.PolicyConfig) model.PolicyConfig {
	policy := defaults
	base := defaults.PredictionsPerQuery

	switch analysis.Complexity {
	case model.ComplexityBeginner:
		policy.PredictionScope = model.ScopeWide
		policy.PredictionsPerQuery = min(base, beginnerMaxPredictions)
	case model.ComplexityAdvanced:
		policy.PredictionScope = model.ScopeNarrow
		policy.PredictionsPerQuery = max(base, advancedMinPredictions)
	}

	switch analysis.Intent {
	case model.IntentProblemSolving:
		policy.PredictionScope = model.ScopeNarrow
	case model.IntentExploration:
		policy.PredictionScope = model.ScopeWide
	}

	if IsPremiumTier(tier) {
		policy.PredictionsPerQuery = int(float64(policy.PredictionsPerQuery) * premiumMultiplier)
	}

	if policy.PredictionsPerQuery < 0 {
		policy.PredictionsPerQuery = 0
	}
	return policy
}

// IsPremiumTier reports whether the tier gets the count multiplier.
func IsPremiumTier(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "premium", "enterprise":
		return true
	}
	return false
}
