package nats

import (
	"context"
	"testing"
	"time"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

func TestEventSubject(t *testing.T) {
	tests := []struct {
		eventType model.EventType
		want      string
	}{
		{model.EventTypePredictionGenerated, "prefetch.prediction.generated"},
		{model.EventTypeQueryPromoted, "prefetch.query.promoted"},
		{model.EventTypeTopicPivot, "prefetch.topic.pivot"},
	}

	for _, tt := range tests {
		if got := EventSubject(tt.eventType); got != tt.want {
			t.Errorf("EventSubject(%q) = %q, want %q", tt.eventType, got, tt.want)
		}
	}
}

func TestStamp(t *testing.T) {
	e := &model.PrefetchEvent{Type: model.EventTypeTopicPivot}
	stamp(e)
	if e.ID == "" {
		t.Error("expected generated ID")
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e = &model.PrefetchEvent{ID: "evt-1", CreatedAt: fixed}
	stamp(e)
	if e.ID != "evt-1" || !e.CreatedAt.Equal(fixed) {
		t.Errorf("stamp overwrote existing fields: %+v", e)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.PublishEvent(context.Background(), &model.PrefetchEvent{}); err != nil {
		t.Errorf("PublishEvent() error = %v", err)
	}
}

func TestIsConnectedNilClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reported connected")
	}
}
