package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"kelpAPI/internal/profile"
	"kelpAPI/middleware"
	"kelpAPI/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
	logger          *zap.Logger
}

func NewReferralHandler(referralService *services.ReferralService, logger *zap.Logger) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
		logger:          logger,
	}
}

// GET /api/v1/referral/code
func (h *ReferralHandler) GetCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	code, err := h.referralService.GetOrCreateCode(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile.ReferralCodeResponse{Code: code})
}

// POST /api/v1/referral/code/regenerate
func (h *ReferralHandler) RegenerateCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	code, err := h.referralService.RegenerateCode(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile.ReferralCodeResponse{Code: code})
}

// GET /api/v1/referral/share
func (h *ReferralHandler) ShareCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	share, err := h.referralService.ShareCode(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, share)
}

// POST /api/v1/referral/validate (public)
func (h *ReferralHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req profile.ValidateCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	owner, found, err := h.referralService.ValidateCode(ctx, req.Code)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	if !found {
		respondWithJSON(w, http.StatusOK, profile.ValidateCodeResponse{Valid: false})
		return
	}

	respondWithJSON(w, http.StatusOK, profile.ValidateCodeResponse{Valid: true, Referrer: owner.AsReferrer()})
}

// POST /api/v1/referral/redeem
func (h *ReferralHandler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req profile.ReferralCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	referrer, err := h.referralService.RedeemCode(ctx, userID, req.Code)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "referrer": referrer})
}
