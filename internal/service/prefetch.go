package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/capitalize-ai/predictive-prefetch/internal/analytics"
	"github.com/capitalize-ai/predictive-prefetch/internal/analyzer"
	"github.com/capitalize-ai/predictive-prefetch/internal/cache"
	"github.com/capitalize-ai/predictive-prefetch/internal/conversation"
	"github.com/capitalize-ai/predictive-prefetch/internal/llm"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	natsclient "github.com/capitalize-ai/predictive-prefetch/internal/nats"
	"github.com/capitalize-ai/predictive-prefetch/internal/parser"
	"github.com/capitalize-ai/predictive-prefetch/internal/prompt"
	"github.com/capitalize-ai/predictive-prefetch/internal/retention"
	"github.com/capitalize-ai/predictive-prefetch/internal/scope"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
	"github.com/capitalize-ai/predictive-prefetch/pkg/metrics"
)

const tracerName = "github.com/capitalize-ai/predictive-prefetch/internal/service"

// Promotion triggers, used as the prefetch_promotions_total label.
const (
	TriggerThreshold = "threshold"
	TriggerBackfill  = "backfill"
)

// Options configures a PrefetchService.
type Options struct {
	// Policy is the default policy that scope rules are applied onto.
	Policy model.PolicyConfig

	// Model and MaxTokens are passed through to the LLM client.
	Model     string
	MaxTokens int

	// CacheTTL is the TTL for freshly generated batches. Zero uses the cache default.
	CacheTTL time.Duration

	// CachePredictedQuestions stores each confident prediction under its own question.
	CachePredictedQuestions bool

	// SingleFlight collapses concurrent identical cache misses into one LLM call.
	SingleFlight bool
}

// Deps are the collaborators of a PrefetchService.
type Deps struct {
	Analyzer      analyzer.Analyzer
	LLM           llm.Client
	Cache         *cache.Manager
	Retention     *retention.Tracker
	Conversations *conversation.Manager
	Analytics     *analytics.Manager
	Events        natsclient.Publisher
	Logger        *logger.Logger
}

// PrefetchService answers a query together with a batch of predicted
// follow-ups, caching the batch and tracking retention and session topics.
type PrefetchService struct {
	analyzer      analyzer.Analyzer
	llmClient     llm.Client
	cache         *cache.Manager
	retention     *retention.Tracker
	conversations *conversation.Manager
	analytics     *analytics.Manager
	events        natsclient.Publisher
	logger        *logger.Logger
	opts          Options

	flights singleflight.Group
	tracer  trace.Tracer
	now     func() time.Time
}

// NewPrefetchService creates a new prefetch service.
func NewPrefetchService(deps Deps, opts Options) *PrefetchService {
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.NewHeuristic()
	}
	if deps.Events == nil {
		deps.Events = natsclient.NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if opts.Policy.PredictionScope == "" {
		opts.Policy = scope.DefaultPolicy()
	}

	return &PrefetchService{
		analyzer:      deps.Analyzer,
		llmClient:     deps.LLM,
		cache:         deps.Cache,
		retention:     deps.Retention,
		conversations: deps.Conversations,
		analytics:     deps.Analytics,
		events:        deps.Events,
		logger:        deps.Logger,
		opts:          opts,
		tracer:        otel.Tracer(tracerName),
		now:           time.Now,
	}
}

// Handle runs the full pipeline for one request. Model and parse failures are
// returned; cache, retention and event failures are logged and swallowed.
func (s *PrefetchService) Handle(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}

	ctx, span := s.tracer.Start(ctx, "prefetch.Handle", trace.WithAttributes(
		attribute.String("prefetch.session_id", req.SessionID),
		attribute.String("prefetch.tier", req.Tier),
	))
	defer span.End()

	analysis := s.analyzer.Analyze(query)
	policy := scope.Calculate(analysis, req.Tier, s.opts.Policy)
	span.SetAttributes(
		attribute.String("prefetch.topic", analysis.MainTopic),
		attribute.String("prefetch.scope", string(policy.PredictionScope)),
	)

	resp, hit := s.cache.GetPredictions(ctx, query)
	if !hit && s.opts.CachePredictedQuestions {
		resp, hit = s.cache.TakePredictedAnswer(ctx, query)
	}
	if hit {
		s.analytics.TrackCacheHit()
	} else {
		generated, err := s.generate(ctx, query, req.Tier, analysis, policy)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		resp = generated
		s.analytics.TrackCacheMiss()
	}
	span.SetAttributes(attribute.Bool("prefetch.cache_hit", hit))

	resp.Cached = hit
	s.track(ctx, req, query, analysis, policy, resp)

	return resp, nil
}

// Metrics returns a read-only snapshot of engine counters.
func (s *PrefetchService) Metrics() model.EngineMetrics {
	return s.analytics.Snapshot()
}

// SessionContext returns the session's state and its previous topics.
func (s *PrefetchService) SessionContext(userID, sessionID string) model.SessionContextResponse {
	return model.SessionContextResponse{
		State:          s.conversations.GetContext(userID, sessionID),
		PreviousTopics: s.conversations.GetPreviousTopics(userID, sessionID),
	}
}

// PromotionCandidates lists unpromoted queries that already meet the
// frequency threshold. It never promotes anything itself.
func (s *PrefetchService) PromotionCandidates() []model.RetentionMetric {
	return s.retention.GetPromotionCandidates()
}

// Promote promotes a candidate query. It reports false when the query is
// unknown, below the frequency threshold, or already promoted, so a query is
// never promoted twice.
func (s *PrefetchService) Promote(ctx context.Context, query string) bool {
	if !s.retention.MarkPromoted(query) {
		return false
	}
	s.promote(ctx, query, TriggerBackfill, nil)
	return true
}

// generate produces and stores a fresh batch. Nothing is written until the
// model call and parse have both succeeded.
func (s *PrefetchService) generate(ctx context.Context, query, tier string, analysis model.TopicAnalysis, policy model.PolicyConfig) (*model.PredictionResponse, error) {
	if !s.opts.SingleFlight {
		return s.generateAndStore(ctx, query, analysis, policy)
	}

	// The shared call outlives any one caller; each caller only stops waiting.
	key := fmt.Sprintf("%s|%t", cache.NormalizeKey(query), scope.IsPremiumTier(tier))
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.generateAndStore(context.WithoutCancel(ctx), query, analysis, policy)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		resp := r.Val.(*model.PredictionResponse)
		if !r.Shared {
			return resp, nil
		}
		return copyResponse(resp), nil
	}
}

func (s *PrefetchService) generateAndStore(ctx context.Context, query string, analysis model.TopicAnalysis, policy model.PolicyConfig) (*model.PredictionResponse, error) {
	mp := prompt.Master(query, analysis, policy)

	completion, err := s.complete(ctx, mp)
	if err != nil {
		return nil, err
	}

	resp, err := parser.Parse(completion.Content, query, analysis.MainTopic)
	if err != nil {
		s.logger.Warn("failed to parse model response",
			zap.String("model", completion.Model),
			zap.Int("content_length", len(completion.Content)),
			zap.Error(err),
		)
		return nil, err
	}
	resp.Metadata.ModelUsed = completion.Model
	resp.Metadata.TotalTokens = completion.TotalTokens()

	s.cache.CachePredictions(ctx, query, resp, s.opts.CacheTTL)
	if s.opts.CachePredictedQuestions {
		s.cachePredictedQuestions(ctx, resp, policy.MinConfidenceThreshold)
	}

	s.analytics.TrackPredictions(len(resp.Predictions), resp.AverageConfidence())
	topics := make([]string, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		topics = append(topics, p.Topic)
	}
	s.analytics.TrackTopics(topics...)

	s.publish(ctx, &model.PrefetchEvent{
		Type:  model.EventTypePredictionGenerated,
		Query: cache.NormalizeKey(query),
		Topic: resp.MainTopic,
		Metadata: map[string]any{
			"predictions": len(resp.Predictions),
			"model":       resp.Metadata.ModelUsed,
			"tokens":      resp.Metadata.TotalTokens,
		},
	})

	return resp, nil
}

func (s *PrefetchService) complete(ctx context.Context, mp model.MasterPrompt) (*llm.CompletionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "prefetch.llm", trace.WithAttributes(
		attribute.String("llm.provider", s.llmClient.Name()),
	))
	defer span.End()

	start := time.Now()
	completion, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Model:     s.opts.Model,
		System:    mp.SystemPrompt,
		Messages:  []llm.ChatMessage{{Role: "user", Content: mp.UserPrompt}},
		MaxTokens: s.opts.MaxTokens,
		JSONMode:  mp.ExpectedFormat == model.ExpectedFormatJSON,
	})
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordLLMCall(s.opts.Model, "error", duration, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("LLM completion failed", zap.String("provider", s.llmClient.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrModelInvocation, err)
	}

	metrics.RecordLLMCall(completion.Model, "success", duration, completion.TokensIn, completion.TokensOut)
	span.SetAttributes(
		attribute.String("llm.model", completion.Model),
		attribute.Int("llm.tokens_in", completion.TokensIn),
		attribute.Int("llm.tokens_out", completion.TokensOut),
	)
	return completion, nil
}

// cachePredictedQuestions stores each confident prediction's answer under its
// own question, so asking a predicted question later is answered from cache.
func (s *PrefetchService) cachePredictedQuestions(ctx context.Context, resp *model.PredictionResponse, minConfidence float64) {
	for _, p := range resp.Predictions {
		if p.Confidence < minConfidence || strings.TrimSpace(p.Question) == "" {
			continue
		}
		if cache.NormalizeKey(p.Question) == cache.NormalizeKey(resp.OriginalQuery) {
			continue
		}
		s.cache.CachePredictedAnswer(ctx, p.Question, &model.PredictionResponse{
			OriginalQuery: p.Question,
			MainTopic:     p.Topic,
			DirectAnswer:  p.Answer,
			Predictions:   []model.PredictedQA{},
			Metadata:      resp.Metadata,
		}, s.opts.CacheTTL)
	}
}

// track updates retention and session state for an answered request.
func (s *PrefetchService) track(ctx context.Context, req *model.PredictionRequest, query string, analysis model.TopicAnalysis, policy model.PolicyConfig, resp *model.PredictionResponse) {
	if s.retention.TrackQuery(query) {
		s.promote(ctx, query, TriggerThreshold, req)
	}

	transition := s.conversations.UpdateContext(req.UserID, req.SessionID, analysis)
	if !transition.Pivot() {
		return
	}

	metrics.TopicPivotsTotal.Inc()
	if policy.EnableBridgePrompts {
		resp.BridgePrompt = prompt.Bridge(transition.To, transition.From)
	}
	s.publish(ctx, &model.PrefetchEvent{
		Type:          model.EventTypeTopicPivot,
		Query:         cache.NormalizeKey(query),
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		Topic:         transition.To,
		PreviousTopic: transition.From,
	})
}

// promote runs the promotion action. Callers must hold the one-shot flip
// from the retention tracker.
func (s *PrefetchService) promote(ctx context.Context, query, trigger string, req *model.PredictionRequest) {
	metrics.PromotionsTotal.WithLabelValues(trigger).Inc()
	stored := s.cache.Promote(ctx, query)

	s.logger.Info("query promoted",
		zap.String("query", cache.NormalizeKey(query)),
		zap.String("trigger", trigger),
		zap.Bool("batch_stored", stored),
	)

	event := &model.PrefetchEvent{
		Type:     model.EventTypeQueryPromoted,
		Query:    cache.NormalizeKey(query),
		Metadata: map[string]any{"trigger": trigger, "batch_stored": stored},
	}
	if req != nil {
		event.UserID = req.UserID
		event.SessionID = req.SessionID
	}
	s.publish(ctx, event)
}

func (s *PrefetchService) publish(ctx context.Context, event *model.PrefetchEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func copyResponse(resp *model.PredictionResponse) *model.PredictionResponse {
	c := *resp
	c.Predictions = make([]model.PredictedQA, len(resp.Predictions))
	copy(c.Predictions, resp.Predictions)
	return &c
}
