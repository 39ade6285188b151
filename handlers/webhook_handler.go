package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"kelpAPI/internal/profile"
	"kelpAPI/services"
)

// webhookTolerance is how far svix-timestamp may drift from now.
const webhookTolerance = 5 * time.Minute

var errBadSignature = errors.New("invalid webhook signature")

type WebhookHandler struct {
	profileService  *services.ProfileService
	referralService *services.ReferralService
	secret          []byte
	now             func() time.Time
	logger          *zap.Logger
}

// NewWebhookHandler builds the Clerk webhook handler. An empty secret skips
// signature verification.
func NewWebhookHandler(
	profileService *services.ProfileService,
	referralService *services.ReferralService,
	secret string,
	logger *zap.Logger,
) (*WebhookHandler, error) {
	h := &WebhookHandler{
		profileService:  profileService,
		referralService: referralService,
		now:             time.Now,
		logger:          logger,
	}

	if secret != "" {
		key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
		if err != nil {
			return nil, fmt.Errorf("invalid CLERK_WEBHOOK_SECRET: %w", err)
		}
		h.secret = key
	} else {
		logger.Warn("CLERK_WEBHOOK_SECRET not set, skipping signature verification")
	}
	return h, nil
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if err := h.verifySignature(r.Header, body); err != nil {
		h.logger.Warn("rejected webhook", zap.Error(err))
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event profile.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	h.logger.Info("received webhook event", zap.String("type", event.Type))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch event.Type {
	case "user.created":
		if err := h.handleUserCreated(ctx, event.Data); err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
	default:
		h.logger.Debug("unhandled webhook event type", zap.String("type", event.Type))
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData profile.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return services.NewValidationError("invalid user payload")
	}

	imageURL := userData.ImageURL
	if imageURL == "" {
		imageURL = userData.ProfileImageURL
	}

	p, created, err := h.profileService.CreateProfile(ctx, &profile.CreateProfileRequest{
		ID:       userData.ID,
		Username: userData.DisplayName(),
		ImageURL: imageURL,
	})
	if err != nil {
		return err
	}
	if !created {
		h.logger.Info("profile already provisioned", zap.String("user_id", p.ID))
		return nil
	}

	if code := userData.ReferralCode(); code != "" {
		if _, err := h.referralService.RedeemCode(ctx, p.ID, code); err != nil {
			h.logger.Warn("sign-up referral code not redeemed",
				zap.String("user_id", p.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// verifySignature checks the Svix headers Clerk sends: an HMAC-SHA256 of
// "id.timestamp.body", base64 encoded, listed as "v1,<sig>" entries.
func (h *WebhookHandler) verifySignature(header http.Header, body []byte) error {
	if h.secret == nil {
		return nil
	}

	msgID := header.Get("svix-id")
	timestamp := header.Get("svix-timestamp")
	signatures := header.Get("svix-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return fmt.Errorf("%w: missing svix headers", errBadSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", errBadSignature)
	}
	sent := time.Unix(ts, 0)
	if d := h.now().Sub(sent); d > webhookTolerance || d < -webhookTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", errBadSignature)
	}

	expected := SignWebhook(h.secret, msgID, timestamp, body)
	for _, entry := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", errBadSignature)
}

// SignWebhook computes the v1 Svix signature for body.
func SignWebhook(key []byte, msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
