// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/predictive-prefetch/internal/middleware"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/internal/service"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
)

// PredictionHandler handles prediction endpoints.
type PredictionHandler struct {
	predictor service.Predictor
	logger    *logger.Logger
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(predictor service.Predictor, log *logger.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictor: predictor,
		logger:    log,
	}
}

type predictionBody struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
	Tier      string `json:"tier,omitempty"`
}

// Create handles POST /api/v1/predictions
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body predictionBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateQuery(body.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateSessionID(body.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateTier(body.Tier); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A tier carried by the token always wins over the body hint.
	tier := middleware.GetTier(ctx)
	if tier == "" {
		tier = body.Tier
	}

	resp, err := h.predictor.Handle(ctx, &model.PredictionRequest{
		Query:     body.Query,
		UserID:    middleware.GetUserID(ctx),
		SessionID: body.SessionID,
		Tier:      tier,
	})
	if err != nil {
		status, message := statusForError(err)
		middleware.RequestLogger(ctx, h.logger, body.SessionID).Error("prediction failed",
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Metrics handles GET /api/v1/metrics/engine
func (h *PredictionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.predictor.Metrics())
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrResponseParse):
		return http.StatusBadGateway, "model returned an unusable response"
	case errors.Is(err, model.ErrModelInvocation):
		return http.StatusBadGateway, "model invocation failed"
	default:
		return http.StatusInternalServerError, "failed to generate predictions"
	}
}
