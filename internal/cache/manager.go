package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
	"github.com/capitalize-ai/predictive-prefetch/pkg/metrics"
)

const (
	// DefaultTTL is how long a prediction batch lives when no TTL is given.
	DefaultTTL = 72 * time.Hour

	// DefaultKnownTTL is how long a promoted query's batch lives.
	DefaultKnownTTL = 30 * 24 * time.Hour

	keyPrefix          = "prefetch:predictions:"
	predictedKeyPrefix = "prefetch:predicted:"
)

// Options configures a Manager.
type Options struct {
	TTL      time.Duration
	KnownTTL time.Duration
}

// Manager caches prediction batches in a durable Store, falling back to an
// in-process MemoryStore. The first durable backend error demotes the manager
// to the fallback for the rest of the process; the backend is never retried.
type Manager struct {
	durable  Store
	fallback *MemoryStore
	ttl      time.Duration
	knownTTL time.Duration
	logger   *logger.Logger

	degraded   atomic.Bool
	demoteOnce sync.Once
}

// NewManager creates a cache manager. A nil durable store starts the manager
// on the in-process fallback.
func NewManager(durable Store, opts Options, log *logger.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.KnownTTL <= 0 {
		opts.KnownTTL = DefaultKnownTTL
	}

	m := &Manager{
		durable:  durable,
		fallback: NewMemoryStore(),
		ttl:      opts.TTL,
		knownTTL: opts.KnownTTL,
		logger:   log,
	}
	if durable == nil {
		m.degraded.Store(true)
		metrics.CacheBackendDegraded.Set(1)
	}
	return m
}

// Degraded reports whether the manager is serving from the in-process fallback.
func (m *Manager) Degraded() bool {
	return m.degraded.Load()
}

// CachePredictions stores resp under the normalized query. A ttl <= 0 uses the
// configured default. Failures are logged and never returned.
func (m *Manager) CachePredictions(ctx context.Context, query string, resp *model.PredictionResponse, ttl time.Duration) {
	if resp == nil {
		return
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	stored := *resp
	stored.Cached = false
	stored.BridgePrompt = nil

	data, err := json.Marshal(&stored)
	if err != nil {
		m.logger.Warn("failed to encode predictions", zap.String("query", query), zap.Error(err))
		return
	}

	m.set(ctx, Key(query), data, ttl)
}

// GetPredictions returns the cached batch for query, or false on miss or expiry.
func (m *Manager) GetPredictions(ctx context.Context, query string) (*model.PredictionResponse, bool) {
	data, ok := m.get(ctx, Key(query))
	if !ok {
		return nil, false
	}

	var resp model.PredictionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		m.logger.Warn("discarding undecodable cache entry", zap.String("query", query), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Promote re-stores the query's batch with the known TTL. It reports whether a
// batch was found.
func (m *Manager) Promote(ctx context.Context, query string) bool {
	key := Key(query)
	data, ok := m.get(ctx, key)
	if !ok {
		return false
	}
	m.set(ctx, key, data, m.knownTTL)
	return true
}

// CachePredictedAnswer stores the answer to a predicted follow-up question.
// Predicted answers live apart from full batches so they never stand in for
// one.
func (m *Manager) CachePredictedAnswer(ctx context.Context, question string, resp *model.PredictionResponse, ttl time.Duration) {
	if resp == nil {
		return
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	data, err := json.Marshal(resp)
	if err != nil {
		m.logger.Warn("failed to encode predicted answer", zap.String("question", question), zap.Error(err))
		return
	}

	m.set(ctx, PredictedKey(question), data, ttl)
}

// TakePredictedAnswer returns and removes the predicted answer for question.
// Each entry is served once; the next sighting of the question generates a
// full batch.
func (m *Manager) TakePredictedAnswer(ctx context.Context, question string) (*model.PredictionResponse, bool) {
	key := PredictedKey(question)
	data, ok := m.get(ctx, key)
	if !ok {
		return nil, false
	}
	m.del(ctx, key)

	var resp model.PredictionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		m.logger.Warn("discarding undecodable predicted answer", zap.String("question", question), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Key returns the storage key for a query's batch.
func Key(query string) string {
	return keyPrefix + NormalizeKey(query)
}

// PredictedKey returns the storage key for a predicted question's answer.
func PredictedKey(question string) string {
	return predictedKeyPrefix + NormalizeKey(question)
}

func (m *Manager) get(ctx context.Context, key string) ([]byte, bool) {
	if !m.degraded.Load() {
		data, err := m.durable.Get(ctx, key)
		switch {
		case err == nil:
			return data, true
		case errors.Is(err, ErrNotFound):
			return nil, false
		case canceled(ctx, err):
			return nil, false
		default:
			m.demote(err)
		}
	}

	data, err := m.fallback.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (m *Manager) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if !m.degraded.Load() {
		err := m.durable.Set(ctx, key, data, ttl)
		if err == nil || canceled(ctx, err) {
			return
		}
		m.demote(err)
	}

	// MemoryStore.Set never fails.
	_ = m.fallback.Set(ctx, key, data, ttl)
}

func (m *Manager) del(ctx context.Context, key string) {
	if !m.degraded.Load() {
		err := m.durable.Delete(ctx, key)
		if err == nil || canceled(ctx, err) {
			return
		}
		m.demote(err)
	}
	_ = m.fallback.Delete(ctx, key)
}

// canceled reports whether err comes from the caller giving up rather than
// from the backend.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) demote(err error) {
	m.demoteOnce.Do(func() {
		m.degraded.Store(true)
		metrics.CacheBackendDegraded.Set(1)
		m.logger.Error("durable cache unavailable, using in-process fallback for the rest of the process",
			zap.Error(errors.Join(model.ErrCacheBackend, err)),
		)
	})
}
