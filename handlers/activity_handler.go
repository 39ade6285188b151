package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"kelpAPI/internal/activity"
	"kelpAPI/middleware"
	"kelpAPI/services"
)

type ActivityHandler struct {
	activityService    *services.ActivityService
	leaderboardService *services.LeaderboardService
	insightService     *services.InsightService
	logger             *zap.Logger
}

func NewActivityHandler(
	activityService *services.ActivityService,
	leaderboardService *services.LeaderboardService,
	insightService *services.InsightService,
	logger *zap.Logger,
) *ActivityHandler {
	return &ActivityHandler{
		activityService:    activityService,
		leaderboardService: leaderboardService,
		insightService:     insightService,
		logger:             logger,
	}
}

// POST /api/v1/activities
func (h *ActivityHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), evaluationTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req activity.LogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	result, err := h.activityService.LogActivity(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// GET /api/v1/leaderboard?limit=
func (h *ActivityHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	board, err := h.leaderboardService.GetLeaderboard(ctx, userID, limit)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

// GET /api/v1/insights/today
func (h *ActivityHandler) GetTodayInsight(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	in, err := h.insightService.Today(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, in)
}
