package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kelpAPI/services"
)

// evaluationTimeout bounds one badge evaluation; it touches every badge.
const evaluationTimeout = 15 * time.Second

// FuncHandler serves the remotely invoked functions under /functions/v1.
type FuncHandler struct {
	badgeService *services.BadgeService
	logger       *zap.Logger
}

func NewFuncHandler(badgeService *services.BadgeService, logger *zap.Logger) *FuncHandler {
	return &FuncHandler{
		badgeService: badgeService,
		logger:       logger,
	}
}

type assignBadgesRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type assignBadgesResponse struct {
	OK    bool     `json:"ok"`
	New   []string `json:"new,omitempty"`
	Error string   `json:"error,omitempty"`
}

// POST /functions/v1/assign-badges
func (h *FuncHandler) AssignBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), evaluationTimeout)
	defer cancel()

	var req assignBadgesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, services.NewValidationError("user_id is required"))
		return
	}

	awarded, err := h.badgeService.EvaluateAndAward(ctx, req.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}

	if awarded == nil {
		awarded = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "new": awarded})
}

func (h *FuncHandler) fail(w http.ResponseWriter, err error) {
	se := services.AsServiceError(err)
	if se.Kind == services.KindPersistence {
		h.logger.Error("assign-badges failed", zap.Error(err))
	}
	respondWithJSON(w, se.StatusCode(), assignBadgesResponse{OK: false, Error: se.Message})
}
