// Package retention counts how often normalized queries recur and decides
// when a query is promoted to known status.
package retention

import (
	"sort"
	"sync"
	"time"

	"github.com/capitalize-ai/predictive-prefetch/internal/cache"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

const (
	// DefaultThreshold is the frequency at which a query becomes promotable.
	DefaultThreshold = 10

	// DefaultWindow bounds the time between first sighting and promotion.
	DefaultWindow = 7 * 24 * time.Hour
)

// Options configures a Tracker.
type Options struct {
	Threshold int
	Window    time.Duration
}

type entry struct {
	mu     sync.Mutex
	metric model.RetentionMetric
}

// Tracker keeps one RetentionMetric per normalized query. Updates to the same
// query are serialized; distinct queries proceed independently.
//
// Promotion has exactly one writer path: the promoted flag only flips inside
// an entry's lock, so TrackQuery and MarkPromoted can never both report the
// same promotion.
type Tracker struct {
	threshold int
	window    time.Duration
	now       func() time.Time

	entries map[string]*entry
	mu      sync.RWMutex
}

// NewTracker creates a tracker.
func NewTracker(opts Options) *Tracker {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Tracker{
		threshold: opts.Threshold,
		window:    opts.Window,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
}

// TrackQuery records a sighting of query. It returns true exactly once per
// query: on the call where the frequency first reaches the threshold within
// the window of the first sighting.
func (t *Tracker) TrackQuery(query string) bool {
	key := cache.NormalizeKey(query)
	now := t.now()
	e := t.entry(key, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.metric.Frequency++
	e.metric.LastAsked = now

	if e.metric.Promoted {
		return false
	}
	if e.metric.Frequency >= t.threshold && now.Sub(e.metric.FirstAsked) <= t.window {
		e.metric.Promoted = true
		return true
	}
	return false
}

// MarkPromoted promotes a query outside the edge-triggered path, e.g. when
// backfilling from GetPromotionCandidates. It returns false if the query is
// unknown, below the frequency threshold, or already promoted.
func (t *Tracker) MarkPromoted(query string) bool {
	key := cache.NormalizeKey(query)

	t.mu.RLock()
	e, ok := t.entries[key]
	t.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.metric.Promoted || e.metric.Frequency < t.threshold {
		return false
	}
	e.metric.Promoted = true
	return true
}

// GetPromotionCandidates lists unpromoted queries whose frequency meets the
// threshold, ignoring the time window. Most frequent first.
func (t *Tracker) GetPromotionCandidates() []model.RetentionMetric {
	t.mu.RLock()
	entries := make([]*entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	candidates := []model.RetentionMetric{}
	for _, e := range entries {
		e.mu.Lock()
		m := e.metric
		e.mu.Unlock()

		if !m.Promoted && m.Frequency >= t.threshold {
			candidates = append(candidates, m)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Frequency != candidates[j].Frequency {
			return candidates[i].Frequency > candidates[j].Frequency
		}
		return candidates[i].Query < candidates[j].Query
	})
	return candidates
}

// Get returns the metric for query.
func (t *Tracker) Get(query string) (model.RetentionMetric, bool) {
	t.mu.RLock()
	e, ok := t.entries[cache.NormalizeKey(query)]
	t.mu.RUnlock()
	if !ok {
		return model.RetentionMetric{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metric, true
}

func (t *Tracker) entry(key string, now time.Time) *entry {
	t.mu.RLock()
	e, ok := t.entries[key]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e
	}
	e = &entry{metric: model.RetentionMetric{Query: key, FirstAsked: now}}
	t.entries[key] = e
	return e
}
