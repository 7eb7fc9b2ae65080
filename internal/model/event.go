package model

import (
	"time"
)

// EventType represents the type of prefetch event.
type EventType string

const (
	EventTypePredictionGenerated EventType = "prediction.generated"
	EventTypeQueryPromoted       EventType = "query.promoted"
	EventTypeTopicPivot          EventType = "topic.pivot"
)

// PrefetchEvent is published after the engine changes durable state.
type PrefetchEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Query         string         `json:"query"`
	UserID        string         `json:"user_id,omitempty"`
	SessionID     string         `json:"session_id,omitempty"`
	Topic         string         `json:"topic,omitempty"`
	PreviousTopic string         `json:"previous_topic,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
