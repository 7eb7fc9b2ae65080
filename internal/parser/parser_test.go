package parser

import (
	"errors"
	"testing"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"fenced json", "```json\n{\"predictions\":[]}\n```", 0},
		{"fenced without language", "```\n{\"predictions\":[{\"question\":\"q\"}]}\n```", 1},
		{"fenced with prose around", "Here you go:\n```json\n{\"predictions\":[{\"question\":\"q\"}]}\n```\nEnjoy.", 1},
		{"bare object", "  {\"predictions\":[{\"question\":\"a\"},{\"question\":\"b\"}]}  ", 2},
		{"bare object with fence in answer", "{\"predictions\":[{\"question\":\"a\",\"answer\":\"```go\\nfmt.Println()\\n```\"}]}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.raw, "q", "t")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(resp.Predictions) != tt.want {
				t.Errorf("len(Predictions) = %d, want %d", len(resp.Predictions), tt.want)
			}
			if resp.OriginalQuery != "q" || resp.MainTopic != "t" {
				t.Errorf("got query %q topic %q", resp.OriginalQuery, resp.MainTopic)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I cannot answer that."},
		{"truncated", `{"predictions":[{"question":"q"`},
		{"missing predictions", `{"directAnswer":"x"}`},
		{"predictions null", `{"predictions":null}`},
		{"predictions object", `{"predictions":{"question":"q"}}`},
		{"predictions string", `{"predictions":"none"}`},
		{"top level array", `[{"question":"q"}]`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.raw, "q", "t")
			if err == nil {
				t.Fatalf("expected error, got %+v", resp)
			}
			if !errors.Is(err, model.ErrResponseParse) {
				t.Errorf("error %v does not match ErrResponseParse", err)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Errorf("error %T is not *parser.Error", err)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	raw := `{
		"directAnswer": " Qubits hold superpositions. ",
		"mainTopic": "quantum computing",
		"predictions": [
			{"question": "What is a qubit?", "answer": "A two-level system.", "topic": "qubits", "type": "related", "confidence": 0.93},
			{"question": "Where is it used?", "answer": "Chemistry."},
			{"question": "Too sure", "confidence": 1.7},
			{"question": "Negative", "confidence": -0.2},
			{"question": "Stringly", "confidence": "high", "type": "misconception"},
			{"question": "Edge", "confidence": 0},
			{"answer": "no question"},
			"not an object",
			42
		]
	}`

	resp, err := Parse(raw, "What is quantum computing?", "fallback")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if resp.MainTopic != "quantum computing" {
		t.Errorf("MainTopic = %q", resp.MainTopic)
	}
	if resp.DirectAnswer != "Qubits hold superpositions." {
		t.Errorf("DirectAnswer = %q", resp.DirectAnswer)
	}
	if len(resp.Predictions) != 6 {
		t.Fatalf("len(Predictions) = %d, want 6", len(resp.Predictions))
	}

	first := resp.Predictions[0]
	if first.Topic != "qubits" || first.Type != model.PredictionRelated || first.Confidence != 0.93 {
		t.Errorf("first = %+v", first)
	}

	second := resp.Predictions[1]
	if second.Topic != "fallback" {
		t.Errorf("topic default = %q, want fallback", second.Topic)
	}
	if second.Type != model.PredictionFollowUp {
		t.Errorf("type default = %q", second.Type)
	}
	if second.Confidence != DefaultConfidence {
		t.Errorf("confidence default = %v", second.Confidence)
	}

	for _, i := range []int{2, 3, 4} {
		if got := resp.Predictions[i].Confidence; got != DefaultConfidence {
			t.Errorf("prediction %d confidence = %v, want default", i, got)
		}
	}
	if resp.Predictions[4].Type != model.PredictionFollowUp {
		t.Errorf("unknown type = %q, want follow-up", resp.Predictions[4].Type)
	}
	if resp.Predictions[5].Confidence != 0 {
		t.Errorf("zero confidence should be kept, got %v", resp.Predictions[5].Confidence)
	}

	for _, p := range resp.Predictions {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("confidence %v out of range", p.Confidence)
		}
	}
}

func TestParseProcessingTime(t *testing.T) {
	resp, err := Parse(`{"predictions":[]}`, "q", "t")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Metadata.ProcessingTimeMs < 0 {
		t.Errorf("ProcessingTimeMs = %d", resp.Metadata.ProcessingTimeMs)
	}
	if resp.Metadata.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}
