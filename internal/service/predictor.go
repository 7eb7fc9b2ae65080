// Package service contains the prefetch engine orchestration.
package service

import (
	"context"

	"github.com/capitalize-ai/predictive-prefetch/internal/model"
)

// Predictor answers a query and exposes engine counters.
type Predictor interface {
	// Handle runs one request through the engine.
	Handle(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error)

	// Metrics returns a read-only snapshot of engine counters.
	Metrics() model.EngineMetrics
}
