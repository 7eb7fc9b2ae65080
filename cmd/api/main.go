// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/predictive-prefetch/internal/analytics"
	"github.com/capitalize-ai/predictive-prefetch/internal/analyzer"
	"github.com/capitalize-ai/predictive-prefetch/internal/cache"
	"github.com/capitalize-ai/predictive-prefetch/internal/config"
	"github.com/capitalize-ai/predictive-prefetch/internal/conversation"
	"github.com/capitalize-ai/predictive-prefetch/internal/handler"
	"github.com/capitalize-ai/predictive-prefetch/internal/llm"
	"github.com/capitalize-ai/predictive-prefetch/internal/middleware"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	natsclient "github.com/capitalize-ai/predictive-prefetch/internal/nats"
	"github.com/capitalize-ai/predictive-prefetch/internal/retention"
	"github.com/capitalize-ai/predictive-prefetch/internal/service"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
	"github.com/capitalize-ai/predictive-prefetch/pkg/tracing"
)

const serviceName = "predictive-prefetch"

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server", zap.Bool("prefetch_enabled", cfg.PrefetchEnabled))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	llmClient, err := newLLMClient(cfg)
	if err != nil {
		log.Error("failed to create LLM client", zap.String("provider", cfg.LLMProvider), zap.Error(err))
		os.Exit(1)
	}

	// NATS is optional; without it events are dropped.
	var (
		events     natsclient.Publisher = natsclient.NopPublisher{}
		natsHealth handler.Connectivity
	)
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		events = streamManager
		natsHealth = natsClient
	}

	durable := connectDurableCache(ctx, cfg, log)
	if closer, ok := durable.(io.Closer); ok {
		defer closer.Close()
	}
	cacheManager := cache.NewManager(durable, cache.Options{
		TTL:      cfg.CacheTTL,
		KnownTTL: cfg.CacheKnownTTL,
	}, log)

	stats := analytics.NewManager(cfg.CostPerCall)

	var (
		predictor service.Predictor
		insights  *service.PrefetchService
	)
	if cfg.PrefetchEnabled {
		insights = service.NewPrefetchService(service.Deps{
			Analyzer:      analyzer.NewHeuristic(),
			LLM:           llmClient,
			Cache:         cacheManager,
			Retention:     retention.NewTracker(retention.Options{Threshold: cfg.PromotionThreshold, Window: cfg.PromotionWindow}),
			Conversations: conversation.NewManager(cfg.SessionTimeout),
			Analytics:     stats,
			Events:        events,
			Logger:        log,
		}, service.Options{
			Policy: model.PolicyConfig{
				PredictionScope:        model.ScopeMedium,
				PredictionsPerQuery:    cfg.PredictionsPerQuery,
				MinConfidenceThreshold: cfg.MinConfidence,
				EnableBridgePrompts:    cfg.BridgePromptsEnabled,
			},
			Model:                   cfg.LLMModel,
			MaxTokens:               cfg.LLMMaxTokens,
			CacheTTL:                cfg.CacheTTL,
			CachePredictedQuestions: cfg.CachePredictedQuestions,
			SingleFlight:            cfg.SingleFlight,
		})
		predictor = insights
	} else {
		predictor = service.NewDirectService(llmClient, stats, cfg.LLMModel, cfg.LLMMaxTokens, log)
	}

	healthHandler := handler.NewHealthHandler(natsHealth, cacheManager)
	predictionHandler := handler.NewPredictionHandler(predictor, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/predictions", predictionHandler.Create)
		r.Get("/metrics/engine", predictionHandler.Metrics)

		if insights != nil {
			insightsHandler := handler.NewInsightsHandler(insights, log)
			r.Get("/sessions/{sessionID}/context", insightsHandler.SessionContext)

			r.Route("/retention", func(r chi.Router) {
				r.Use(middleware.RequireScope(middleware.ScopeAdmin))
				r.Get("/candidates", insightsHandler.Candidates)
				r.Post("/promote", insightsHandler.Promote)
			})
		}
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Environment == "development" {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	provider := llm.Provider(cfg.LLMProvider)
	switch provider {
	case llm.ProviderOpenAI:
		return llm.NewClient(provider, cfg.OpenAIAPIKey)
	default:
		return llm.NewClient(provider, cfg.AnthropicAPIKey)
	}
}

// connectDurableCache returns nil when Redis is not configured or unreachable,
// which starts the cache manager on its in-process fallback.
func connectDurableCache(ctx context.Context, cfg *config.Config, log *logger.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-process prediction cache")
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.RedisTimeout)
	defer cancel()

	store, err := cache.ConnectRedis(dialCtx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		log.Warn("redis unavailable, using in-process prediction cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return nil
	}

	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return store
}
