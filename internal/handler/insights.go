package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/predictive-prefetch/internal/middleware"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/pkg/logger"
)

// Insights exposes engine state beyond request handling.
type Insights interface {
	SessionContext(userID, sessionID string) model.SessionContextResponse
	PromotionCandidates() []model.RetentionMetric
	Promote(ctx context.Context, query string) bool
}

// InsightsHandler handles session and retention endpoints.
type InsightsHandler struct {
	insights Insights
	logger   *logger.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(insights Insights, log *logger.Logger) *InsightsHandler {
	return &InsightsHandler{
		insights: insights,
		logger:   log,
	}
}

// SessionContext handles GET /api/v1/sessions/{sessionID}/context
func (h *InsightsHandler) SessionContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.insights.SessionContext(middleware.GetUserID(r.Context()), sessionID))
}

// Candidates handles GET /api/v1/retention/candidates
func (h *InsightsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	candidates := h.insights.PromotionCandidates()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

type promoteBody struct {
	Query string `json:"query"`
}

// Promote handles POST /api/v1/retention/promote
func (h *InsightsHandler) Promote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body promoteBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateQuery(body.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.insights.Promote(ctx, body.Query) {
		writeError(w, http.StatusConflict, "query is not a promotion candidate")
		return
	}

	middleware.RequestLogger(ctx, h.logger, "").Info("query promoted by backfill", zap.String("query", body.Query))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":    body.Query,
		"promoted": true,
	})
}
