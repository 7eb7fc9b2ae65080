// Package prompt builds the prompts sent to the LLM collaborator.
// Every function here is pure templating and never calls the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

var scopeGuidance = map[model.Scope]string{
	model.ScopeNarrow: "Stay strictly within the immediate topic. Do not follow tangents.",
	model.ScopeMedium: "Cover the core topic first, then branch outward to closely related concepts.",
	model.ScopeWide:   "Explore broadly, including interdisciplinary and cross-domain connections.",
}

const masterSystemTemplate = `You are a knowledge assistant that answers a question and anticipates what the user will ask next.

Respond with a single JSON object and nothing else. The object must contain:
- "directAnswer": a complete answer to the user's question
- "mainTopic": the main topic of the question
- "predictions": exactly %d predicted question and answer items

Spread the predictions across these five categories:
1. follow-up questions the user is likely to ask next (type "follow-up")
2. related concepts worth understanding (type "related")
3. practical applications (type "application")
4. comparisons with alternatives (type "comparison")
5. common misconceptions, with corrections (type "related")

Each prediction must carry "question", "answer", "topic", "type" and a "confidence" between 0 and 1 that the user will ask it.

Scope: %s`

const masterUserTemplate = `Question: %s

Analysis:
- Main topic: %s
- Subtopics: %s
- Intent: %s
- Complexity: %s
- Related domains: %s

Return JSON in exactly this shape:
%s`

const masterExample = `{
  "directAnswer": "...",
  "mainTopic": "...",
  "predictions": [
    {
      "question": "...",
      "answer": "...",
      "topic": "...",
      "type": "follow-up",
      "confidence": 0.85
    }
  ]
}`

// Master builds the answer-plus-predictions prompt for a query.
func Master(query string, analysis model.TopicAnalysis, policy model.PolicyConfig) model.MasterPrompt {
	guidance, ok := scopeGuidance[policy.PredictionScope]
	if !ok {
		guidance = scopeGuidance[model.ScopeMedium]
	}

	return model.MasterPrompt{
		SystemPrompt: fmt.Sprintf(masterSystemTemplate, policy.PredictionsPerQuery, guidance),
		UserPrompt: fmt.Sprintf(masterUserTemplate,
			query,
			analysis.MainTopic,
			listOrNone(analysis.SubTopics),
			analysis.Intent,
			analysis.Complexity,
			listOrNone(analysis.RelatedDomains),
			masterExample,
		),
		ExpectedFormat: model.ExpectedFormatJSON,
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
