package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Foo Bar", "foo_bar"},
		{"  foo   bar  ", "foo_bar"},
		{"FOO\tBAR\nbaz", "foo_bar_baz"},
		{"foo_bar", "foo_bar"},
		{"", ""},
		{"   ", ""},
		{"What is Go?", "what_is_go?"},
	}

	for _, tt := range tests {
		got := NormalizeKey(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := NormalizeKey(got); again != got {
			t.Errorf("NormalizeKey not idempotent for %q: %q then %q", tt.in, got, again)
		}
	}

	if Key("Foo Bar") != Key("  foo   bar  ") {
		t.Error("queries differing only in case and spacing must share a key")
	}
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if s.Len() != 1 {
		t.Fatalf("expired entry removed before read, Len() = %d", s.Len())
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after expiry err = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired entry not deleted on read, Len() = %d", s.Len())
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	_ = s.Set(ctx, "k", value, time.Minute)
	value[0] = 'x'

	got, _ := s.Get(ctx, "k")
	got[1] = 'y'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func samplePredictions() *model.PredictionResponse {
	return &model.PredictionResponse{
		OriginalQuery: "Foo Bar",
		MainTopic:     "foo bar",
		DirectAnswer:  "baz",
		Predictions: []model.PredictedQA{
			{Question: "why?", Answer: "because", Topic: "foo bar", Confidence: 0.9, Type: model.PredictionFollowUp},
		},
		Metadata: model.ResponseMetadata{
			GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			ModelUsed:   "test-model",
			TotalTokens: 42,
		},
	}
}

func TestManagerRoundTripNormalizesKey(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, Options{}, logger.NewNop())

	want := samplePredictions()
	m.CachePredictions(ctx, "Foo Bar", want, 0)

	got, ok := m.GetPredictions(ctx, "  foo   bar  ")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, ok := m.GetPredictions(ctx, "foo baz"); ok {
		t.Error("unexpected hit for a different query")
	}
}

func TestManagerStripsPerRequestFields(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, Options{}, logger.NewNop())

	resp := samplePredictions()
	resp.Cached = true
	resp.BridgePrompt = &model.MasterPrompt{SystemPrompt: "s"}
	m.CachePredictions(ctx, "q", resp, time.Hour)

	got, ok := m.GetPredictions(ctx, "q")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Cached || got.BridgePrompt != nil {
		t.Errorf("per-request fields were cached: %+v", got)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failErr error
	calls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return nil, f.failErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return f.failErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.data, key)
	delete(f.ttls, key)
	return nil
}

func TestManagerUsesDurableStore(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := NewManager(store, Options{TTL: time.Hour}, logger.NewNop())

	m.CachePredictions(ctx, "Foo Bar", samplePredictions(), 0)
	if _, ok := store.data[Key("foo bar")]; !ok {
		t.Fatal("durable store not written")
	}
	if store.ttls[Key("foo bar")] != time.Hour {
		t.Errorf("ttl = %v, want configured default", store.ttls[Key("foo bar")])
	}
	if _, ok := m.GetPredictions(ctx, "foo bar"); !ok {
		t.Error("expected hit from durable store")
	}
	if m.Degraded() {
		t.Error("manager should not be degraded")
	}
}

func TestManagerDemotesPermanently(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := NewManager(store, Options{}, logger.NewNop())

	store.failErr = errors.New("connection refused")
	m.CachePredictions(ctx, "q", samplePredictions(), 0)
	if !m.Degraded() {
		t.Fatal("manager should be degraded after a backend error")
	}
	callsAtDemotion := store.calls

	// The fallback now serves reads and writes.
	if _, ok := m.GetPredictions(ctx, "q"); !ok {
		t.Error("expected hit from fallback after demotion")
	}

	// Recovery of the backend is never noticed.
	store.failErr = nil
	m.CachePredictions(ctx, "other", samplePredictions(), 0)
	m.GetPredictions(ctx, "other")
	if store.calls != callsAtDemotion {
		t.Errorf("durable store called %d more times after demotion", store.calls-callsAtDemotion)
	}
}

func TestManagerIgnoresCallerCancellation(t *testing.T) {
	tests := []struct {
		name    string
		failErr error
		cancel  bool
	}{
		{"canceled error", context.Canceled, false},
		{"deadline error", context.DeadlineExceeded, false},
		{"wrapped deadline", fmt.Errorf("redis: %w", context.DeadlineExceeded), false},
		{"canceled caller", errors.New("i/o timeout"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			m := NewManager(store, Options{}, logger.NewNop())

			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			} else {
				defer cancel()
			}

			store.failErr = tt.failErr
			m.CachePredictions(ctx, "q", samplePredictions(), 0)
			if _, ok := m.GetPredictions(ctx, "q"); ok {
				t.Error("expected miss while the store fails")
			}
			if m.Degraded() {
				t.Fatal("caller cancellation demoted the durable store")
			}

			// The durable store keeps serving once the caller is healthy.
			store.failErr = nil
			m.CachePredictions(context.Background(), "q", samplePredictions(), 0)
			if _, ok := store.data[Key("q")]; !ok {
				t.Error("write did not reach the durable store")
			}
		})
	}
}

func TestManagerPredictedAnswers(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := NewManager(store, Options{TTL: time.Hour}, logger.NewNop())

	answer := &model.PredictionResponse{OriginalQuery: "How do qubits work?", DirectAnswer: "Superposition."}
	m.CachePredictedAnswer(ctx, "How do qubits work?", answer, 0)

	if _, ok := m.GetPredictions(ctx, "how do qubits work?"); ok {
		t.Fatal("predicted answer must not read as a full batch")
	}

	got, ok := m.TakePredictedAnswer(ctx, "how do  qubits work?")
	if !ok {
		t.Fatal("expected predicted answer")
	}
	if got.DirectAnswer != "Superposition." {
		t.Errorf("DirectAnswer = %q", got.DirectAnswer)
	}

	if _, ok := m.TakePredictedAnswer(ctx, "how do qubits work?"); ok {
		t.Error("predicted answer served twice")
	}
	if _, ok := store.data[PredictedKey("how do qubits work?")]; ok {
		t.Error("predicted answer left in the durable store")
	}
}

func TestManagerPromote(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := NewManager(store, Options{TTL: time.Hour, KnownTTL: 48 * time.Hour}, logger.NewNop())

	if m.Promote(ctx, "missing") {
		t.Error("Promote reported success for a missing batch")
	}

	m.CachePredictions(ctx, "q", samplePredictions(), 0)
	if !m.Promote(ctx, "Q") {
		t.Fatal("Promote did not find the batch")
	}
	if got := store.ttls[Key("q")]; got != 48*time.Hour {
		t.Errorf("ttl after promotion = %v, want known ttl", got)
	}
}
