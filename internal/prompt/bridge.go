package prompt

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

const bridgeSystemPrompt = `You help learners connect topics when a conversation changes direction.

Respond with a single JSON object and nothing else. The object must contain:
- "directAnswer": a short answer introducing the new topic
- "bridge": a narrative explaining how the previous topic relates to the new one
- "mainTopic": the new topic
- "predictions": question and answer items that connect the two topics, each with "type" set to "bridge"

Each prediction must carry "question", "answer", "topic", "type" and a "confidence" between 0 and 1.`

const bridgeUserTemplate = `The user was discussing "%s" and has now moved to "%s".

Explain how "%s" connects to "%s", then predict the bridging questions the user is likely to ask.

Return JSON in exactly this shape:
{
  "directAnswer": "...",
  "bridge": "...",
  "mainTopic": "%s",
  "predictions": [
    {
      "question": "...",
      "answer": "...",
      "topic": "...",
      "type": "bridge",
      "confidence": 0.8
    }
  ]
}`

// Bridge builds a prompt connecting previous to current. It returns nil when
// there is no previous topic or the topic did not change.
func Bridge(current, previous string) *model.MasterPrompt {
	current = strings.TrimSpace(current)
	previous = strings.TrimSpace(previous)
	if previous == "" || previous == current {
		return nil
	}

	return &model.MasterPrompt{
		SystemPrompt:   bridgeSystemPrompt,
		UserPrompt:     fmt.Sprintf(bridgeUserTemplate, previous, current, previous, current, current),
		ExpectedFormat: model.ExpectedFormatJSON,
	}
}
