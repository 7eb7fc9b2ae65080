// Package parser validates raw model output into prediction responses.
// Model output is untrusted and is checked on every parse.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

// DefaultConfidence replaces missing or out-of-range confidences.
const DefaultConfidence = 0.8

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Error describes model output that could not be turned into predictions.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", model.ErrResponseParse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", model.ErrResponseParse, e.Reason)
}

// Unwrap lets errors.Is match both model.ErrResponseParse and the cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{model.ErrResponseParse, e.Err}
	}
	return []error{model.ErrResponseParse}
}

type payload struct {
	DirectAnswer string          `json:"directAnswer"`
	MainTopic    string          `json:"mainTopic"`
	Bridge       string          `json:"bridge"`
	Predictions  json.RawMessage `json:"predictions"`
}

// Parse decodes raw model text into a response. Metadata.ProcessingTimeMs
// covers only this call.
func Parse(raw, originalQuery, mainTopicFallback string) (*model.PredictionResponse, error) {
	start := time.Now()

	var p payload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &p); err != nil {
		return nil, &Error{Reason: "invalid JSON", Err: err}
	}

	items := bytes.TrimSpace(p.Predictions)
	if len(items) == 0 || items[0] != '[' {
		return nil, &Error{Reason: "predictions array missing"}
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(items, &rawItems); err != nil {
		return nil, &Error{Reason: "invalid predictions array", Err: err}
	}

	mainTopic := mainTopicFallback
	if t := strings.TrimSpace(p.MainTopic); t != "" {
		mainTopic = t
	}

	predictions := make([]model.PredictedQA, 0, len(rawItems))
	for _, item := range rawItems {
		if qa, ok := toPrediction(item, mainTopicFallback); ok {
			predictions = append(predictions, qa)
		}
	}

	return &model.PredictionResponse{
		OriginalQuery: originalQuery,
		MainTopic:     mainTopic,
		DirectAnswer:  strings.TrimSpace(p.DirectAnswer),
		Bridge:        strings.TrimSpace(p.Bridge),
		Predictions:   predictions,
		Metadata: model.ResponseMetadata{
			GeneratedAt:      time.Now(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}, nil
}

// extractJSON pulls the JSON document out of a fenced block when present.
// A bare object is used as-is so fences inside answer strings are left alone.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "{") {
		return text
	}
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// toPrediction maps one untrusted item. Items that are not objects or carry
// no question are dropped.
func toPrediction(item json.RawMessage, topicFallback string) (model.PredictedQA, bool) {
	var fields map[string]any
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return model.PredictedQA{}, false
	}

	question := stringField(fields, "question")
	if question == "" {
		return model.PredictedQA{}, false
	}

	qa := model.PredictedQA{
		Question:   question,
		Answer:     stringField(fields, "answer"),
		Topic:      stringField(fields, "topic"),
		Type:       model.PredictionType(stringField(fields, "type")),
		Confidence: DefaultConfidence,
	}
	if qa.Topic == "" {
		qa.Topic = topicFallback
	}
	if !qa.Type.Valid() {
		qa.Type = model.PredictionFollowUp
	}
	if c, ok := fields["confidence"].(float64); ok && c >= 0 && c <= 1 {
		qa.Confidence = c
	}
	return qa, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}
