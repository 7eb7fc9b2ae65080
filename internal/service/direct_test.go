package service

import (
	"context"
	"errors"
	"testing"

	"github.com/capitalize-ai/predictive-prefetch/internal/analytics"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
)

func TestDirectServiceHandle(t *testing.T) {
	fake := &fakeLLM{content: "  Quantum computing uses qubits.\n"}
	svc := NewDirectService(fake, analytics.NewManager(0), "", 1024, logger.NewNop())

	resp, err := svc.Handle(context.Background(), request("What is quantum computing?"))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.DirectAnswer != "Quantum computing uses qubits." {
		t.Errorf("DirectAnswer = %q", resp.DirectAnswer)
	}
	if len(resp.Predictions) != 0 || resp.Cached {
		t.Errorf("direct response = %+v", resp)
	}
	if resp.MainTopic != "what is quantum computing?" {
		t.Errorf("MainTopic = %q", resp.MainTopic)
	}

	if _, err := svc.Handle(context.Background(), request("What is quantum computing?")); err != nil {
		t.Fatal(err)
	}
	if fake.Calls() != 2 {
		t.Errorf("LLM calls = %d, want 2", fake.Calls())
	}
	if m := svc.Metrics(); m.CacheMisses != 2 || m.CacheHits != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestDirectServiceErrors(t *testing.T) {
	upstream := errors.New("unauthorized")
	svc := NewDirectService(&fakeLLM{err: upstream}, analytics.NewManager(0), "", 0, nil)

	_, err := svc.Handle(context.Background(), request("hello"))
	if !errors.Is(err, model.ErrModelInvocation) || !errors.Is(err, upstream) {
		t.Errorf("Handle() error = %v", err)
	}
	if m := svc.Metrics(); m.CacheMisses != 0 {
		t.Errorf("miss recorded on failure: %+v", m)
	}

	if _, err := svc.Handle(context.Background(), request(" ")); !errors.Is(err, model.ErrEmptyQuery) {
		t.Errorf("Handle(empty) error = %v", err)
	}
}

func TestPredictorImplementations(t *testing.T) {
	var _ Predictor = (*PrefetchService)(nil)
	var _ Predictor = (*DirectService)(nil)
}
