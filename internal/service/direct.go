package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/predictive-prefetch/internal/analytics"
	"github.com/capitalize-ai/predictive-prefetch/internal/analyzer"
	"github.com/capitalize-ai/predictive-prefetch/internal/llm"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
	"github.com/capitalize-ai/predictive-prefetch/pkg/metrics"
)

const directSystemPrompt = "You are a helpful assistant. Answer the user's question directly and concisely."

// DirectService answers with one plain model call. It is used when
// prefetching is disabled: nothing is cached or predicted.
type DirectService struct {
	analyzer  analyzer.Analyzer
	llmClient llm.Client
	analytics *analytics.Manager
	logger    *logger.Logger
	model     string
	maxTokens int
}

// NewDirectService creates a new direct service.
func NewDirectService(llmClient llm.Client, stats *analytics.Manager, modelName string, maxTokens int, log *logger.Logger) *DirectService {
	if log == nil {
		log = logger.NewNop()
	}
	return &DirectService{
		analyzer:  analyzer.NewDisabled(),
		llmClient: llmClient,
		analytics: stats,
		logger:    log,
		model:     modelName,
		maxTokens: maxTokens,
	}
}

// Handle answers the query without predictions.
func (s *DirectService) Handle(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}

	start := time.Now()
	completion, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:     s.model,
		System:    directSystemPrompt,
		Messages:  []llm.ChatMessage{{Role: "user", Content: query}},
		MaxTokens: s.maxTokens,
	})
	duration := time.Since(start)
	if err != nil {
		metrics.RecordLLMCall(s.model, "error", duration.Seconds(), 0, 0)
		s.logger.Error("LLM completion failed", zap.String("provider", s.llmClient.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrModelInvocation, err)
	}
	metrics.RecordLLMCall(completion.Model, "success", duration.Seconds(), completion.TokensIn, completion.TokensOut)

	s.analytics.TrackCacheMiss()

	return &model.PredictionResponse{
		OriginalQuery: query,
		MainTopic:     s.analyzer.Analyze(query).MainTopic,
		DirectAnswer:  strings.TrimSpace(completion.Content),
		Predictions:   []model.PredictedQA{},
		Metadata: model.ResponseMetadata{
			GeneratedAt:      time.Now().UTC(),
			ModelUsed:        completion.Model,
			TotalTokens:      completion.TotalTokens(),
			ProcessingTimeMs: duration.Milliseconds(),
		},
	}, nil
}

// Metrics returns a read-only snapshot of engine counters.
func (s *DirectService) Metrics() model.EngineMetrics {
	return s.analytics.Snapshot()
}
