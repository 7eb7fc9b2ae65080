package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/capitalize-ai/predictive-prefetch/internal/cache"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
)

func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	store, err := cache.ConnectRedis(ctx, cache.RedisConfig{
		Addr:    fmt.Sprintf("%s:%s", host, port.Port()),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if _, err := store.Get(ctx, "absent"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Get(absent) err = %v, want ErrNotFound", err)
	}

	m := cache.NewManager(store, cache.Options{}, logger.NewNop())
	resp := &model.PredictionResponse{
		OriginalQuery: "What is Redis?",
		MainTopic:     "redis",
		Predictions: []model.PredictedQA{
			{Question: "Is Redis persistent?", Answer: "Optionally.", Topic: "redis", Confidence: 0.8, Type: model.PredictionFollowUp},
		},
	}
	m.CachePredictions(ctx, "What is Redis?", resp, time.Minute)

	got, ok := m.GetPredictions(ctx, "what   is REDIS?")
	if !ok {
		t.Fatal("expected hit from redis")
	}
	if len(got.Predictions) != 1 || got.Predictions[0].Question != "Is Redis persistent?" {
		t.Errorf("unexpected predictions: %+v", got.Predictions)
	}
	m.CachePredictedAnswer(ctx, "Is Redis persistent?", &model.PredictionResponse{DirectAnswer: "Optionally."}, time.Minute)
	if _, ok := m.TakePredictedAnswer(ctx, "is redis persistent?"); !ok {
		t.Error("expected predicted answer from redis")
	}
	if _, err := store.Get(ctx, cache.PredictedKey("is redis persistent?")); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("predicted answer still stored, err = %v", err)
	}

	if m.Degraded() {
		t.Error("manager degraded against a healthy redis")
	}

	// Losing the backend demotes the manager without surfacing an error.
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := m.GetPredictions(ctx, "What is Redis?"); ok {
		t.Error("fallback should start empty")
	}
	if !m.Degraded() {
		t.Error("manager should be degraded after the client closed")
	}
}
