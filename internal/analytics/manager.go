// Package analytics aggregates engine counters and derived metrics.
package analytics

import (
	"sort"
	"sync"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/metrics"
)

const (
	// DefaultCostPerCall is the estimated USD cost of one avoided LLM call.
	DefaultCostPerCall = 0.002

	topTopicsLimit = 10
)

// Manager holds engine-wide counters. Every update is mirrored to Prometheus.
type Manager struct {
	costPerCall float64

	mu                   sync.Mutex
	predictionsGenerated int
	cacheHits            int
	cacheMisses          int
	apiCallsSaved        int
	averageConfidence    float64
	topicCounts          map[string]int
}

// NewManager creates an analytics manager. A costPerCall <= 0 uses DefaultCostPerCall.
func NewManager(costPerCall float64) *Manager {
	if costPerCall <= 0 {
		costPerCall = DefaultCostPerCall
	}
	return &Manager{
		costPerCall: costPerCall,
		topicCounts: make(map[string]int),
	}
}

// TrackCacheHit counts a hit, which is also an avoided LLM call.
func (m *Manager) TrackCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.apiCallsSaved++
	m.mu.Unlock()

	metrics.RecordCacheLookup(true)
	metrics.APICallsSaved.Inc()
}

// TrackCacheMiss counts a miss.
func (m *Manager) TrackCacheMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()

	metrics.RecordCacheLookup(false)
}

// TrackPredictions adds count predictions with mean confidence avgConfidence
// and updates the running weighted average.
func (m *Manager) TrackPredictions(count int, avgConfidence float64) {
	if count <= 0 {
		return
	}

	m.mu.Lock()
	before := float64(m.predictionsGenerated)
	m.averageConfidence = (m.averageConfidence*before + avgConfidence*float64(count)) / (before + float64(count))
	m.predictionsGenerated += count
	m.mu.Unlock()

	metrics.PredictionsGenerated.Add(float64(count))
}

// TrackTopics counts topics of generated predictions.
func (m *Manager) TrackTopics(topics ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range topics {
		if t != "" {
			m.topicCounts[t]++
		}
	}
}

// CalculateSavings returns the estimated cost avoided by cache hits.
func (m *Manager) CalculateSavings() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.apiCallsSaved) * m.costPerCall
}

// GetHitRate returns the hit percentage, 0 before any lookups.
func (m *Manager) GetHitRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hitRateLocked()
}

func (m *Manager) hitRateLocked() float64 {
	total := m.cacheHits + m.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(m.cacheHits) / float64(total) * 100
}

// Snapshot returns a copy of the current metrics.
func (m *Manager) Snapshot() model.EngineMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return model.EngineMetrics{
		PredictionsGenerated: m.predictionsGenerated,
		CacheHits:            m.cacheHits,
		CacheMisses:          m.cacheMisses,
		APICallsSaved:        m.apiCallsSaved,
		AverageConfidence:    m.averageConfidence,
		TopPredictedTopics:   m.topTopicsLocked(),
		HitRate:              m.hitRateLocked(),
		EstimatedSavings:     float64(m.apiCallsSaved) * m.costPerCall,
	}
}

func (m *Manager) topTopicsLocked() []string {
	topics := make([]string, 0, len(m.topicCounts))
	for t := range m.topicCounts {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		ci, cj := m.topicCounts[topics[i]], m.topicCounts[topics[j]]
		if ci != cj {
			return ci > cj
		}
		return topics[i] < topics[j]
	})
	if len(topics) > topTopicsLimit {
		topics = topics[:topTopicsLimit]
	}
	return topics
}
