// Package conversation tracks per-session topic history.
package conversation

import (
	"sync"
	"time"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

// DefaultTimeout is the inactivity window after which a session starts over.
const DefaultTimeout = 30 * time.Minute

type sessionKey struct {
	userID    string
	sessionID string
}

type session struct {
	mu    sync.Mutex
	state model.ConversationState
}

// Manager holds conversation state keyed by (userID, sessionID). Sessions are
// created lazily and reset in place once idle longer than the timeout; the
// check happens on access, there is no background timer.
type Manager struct {
	timeout time.Duration
	now     func() time.Time

	sessions map[sessionKey]*session
	mu       sync.RWMutex
}

// NewManager creates a conversation manager. A timeout <= 0 uses DefaultTimeout.
func NewManager(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		timeout:  timeout,
		now:      time.Now,
		sessions: make(map[sessionKey]*session),
	}
}

// GetContext returns a snapshot of the session, fresh if none exists or the
// previous one went stale.
func (m *Manager) GetContext(userID, sessionID string) model.ConversationState {
	s := m.session(userID, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	m.expireLocked(s)
	return s.state.Clone()
}

// UpdateContext records a turn about analysis.MainTopic. A change of topic
// adds a directed edge to the topic graph; repeated edges are kept.
func (m *Manager) UpdateContext(userID, sessionID string, analysis model.TopicAnalysis) model.TopicTransition {
	s := m.session(userID, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	m.expireLocked(s)

	st := &s.state
	from := st.CurrentTopic
	to := analysis.MainTopic

	st.LastActivity = m.now()
	st.MessageCount++
	if from != "" && from != to {
		st.TopicGraph[from] = append(st.TopicGraph[from], to)
	}
	st.CurrentTopic = to
	st.TopicHistory = append(st.TopicHistory, to)

	return model.TopicTransition{
		From:  from,
		To:    to,
		State: st.Clone(),
	}
}

// GetPreviousTopics returns the distinct historical topics other than the
// current one. Order is unspecified.
func (m *Manager) GetPreviousTopics(userID, sessionID string) []string {
	st := m.GetContext(userID, sessionID)

	seen := make(map[string]bool, len(st.TopicHistory))
	topics := []string{}
	for _, topic := range st.TopicHistory {
		if topic == st.CurrentTopic || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics
}

func (m *Manager) session(userID, sessionID string) *session {
	key := sessionKey{userID: userID, sessionID: sessionID}

	m.mu.RLock()
	s, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	s = &session{state: freshState(userID, sessionID, m.now())}
	m.sessions[key] = s
	return s
}

// expireLocked resets a stale session. Callers hold s.mu.
func (m *Manager) expireLocked(s *session) {
	now := m.now()
	if now.Sub(s.state.LastActivity) > m.timeout {
		s.state = freshState(s.state.UserID, s.state.SessionID, now)
	}
}

func freshState(userID, sessionID string, now time.Time) model.ConversationState {
	return model.ConversationState{
		UserID:       userID,
		SessionID:    sessionID,
		TopicHistory: []string{},
		LastActivity: now,
		TopicGraph:   make(map[string][]string),
	}
}
