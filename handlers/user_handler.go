package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"kelpAPI/middleware"
	"kelpAPI/services"
)

const requestTimeout = 5 * time.Second

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New()

type UserHandler struct {
	badgeService *services.BadgeService
	logger       *zap.Logger
}

func NewUserHandler(badgeService *services.BadgeService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		badgeService: badgeService,
		logger:       logger,
	}
}

// GET /api/v1/user/badges
func (h *UserHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	badges, err := h.badgeService.ListBadges(ctx, userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}

// Helper functions

// decodeJSON reads a size-limited JSON body into dst and runs its validate tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.NewValidationError("request body is required")
		}
		return services.NewValidationError("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return services.NewValidationError(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "gte", "min":
		return field + " must be at least " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError writes the short message of err with the status of
// its kind. The cause only goes to the log.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	se := services.AsServiceError(err)
	if se.Kind == services.KindPersistence {
		logger.Error("request failed", zap.Error(err))
	}
	respondWithError(w, se.StatusCode(), se.Message)
}
