// Package model defines data structures for the prefetch engine.
package model

import (
	"time"
)

// ConversationState is the topic history of one user session.
type ConversationState struct {
	UserID       string              `json:"userId"`
	SessionID    string              `json:"sessionId"`
	CurrentTopic string              `json:"currentTopic,omitempty"`
	TopicHistory []string            `json:"topicHistory"`
	MessageCount int                 `json:"messageCount"`
	LastActivity time.Time           `json:"lastActivity"`
	TopicGraph   map[string][]string `json:"topicGraph"`
}

// Clone returns a deep copy of the state.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.TopicHistory = make([]string, len(s.TopicHistory))
	copy(out.TopicHistory, s.TopicHistory)
	out.TopicGraph = make(map[string][]string, len(s.TopicGraph))
	for from, to := range s.TopicGraph {
		out.TopicGraph[from] = append([]string(nil), to...)
	}
	return out
}

// TopicTransition is the result of recording a conversational turn.
type TopicTransition struct {
	From  string            `json:"from,omitempty"`
	To    string            `json:"to"`
	State ConversationState `json:"state"`
}

// Pivot reports whether the turn moved away from an earlier topic.
func (t TopicTransition) Pivot() bool {
	return t.From != "" && t.From != t.To
}

// SessionContextResponse is the response for a session context lookup.
type SessionContextResponse struct {
	State          ConversationState `json:"state"`
	PreviousTopics []string          `json:"previousTopics"`
}
