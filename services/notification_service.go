package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kelpAPI/internal/notification"
)

// PushProvider is satisfied by notification.FCMService.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error
}

type NotificationService struct {
	store  DeviceRepository
	push   PushProvider
	logger *zap.Logger
}

// NewNotificationService builds the service; push may be nil, in which case
// sends are logged and dropped.
func NewNotificationService(s DeviceRepository, push PushProvider, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:  s,
		push:   push,
		logger: logger,
	}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return NewValidationError("token is required")
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform != "ios" && platform != "android" {
		return NewValidationError("platform must be ios or android")
	}

	err := s.store.UpsertDeviceToken(ctx, &notification.DeviceToken{
		Token:    token,
		UserID:   userID,
		Platform: platform,
	})
	if err != nil {
		return NewPersistenceError("could not register device", err)
	}

	s.logger.Info("device registered", zap.String("user_id", userID), zap.String("platform", platform))
	return nil
}

// NotifyBadgesAwarded pushes one message naming the new badges to every
// device of userID. Errors are logged only.
func (s *NotificationService) NotifyBadgesAwarded(ctx context.Context, userID string, names []string) {
	if len(names) == 0 {
		return
	}
	if s.push == nil {
		s.logger.Debug("push disabled, skipping badge notification", zap.String("user_id", userID))
		return
	}

	tokens, err := s.store.ListDeviceTokens(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load device tokens", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	title := "New badge unlocked!"
	if len(names) > 1 {
		title = fmt.Sprintf("%d new badges unlocked!", len(names))
	}
	body := "You earned " + strings.Join(names, ", ")
	data := map[string]string{
		"type":   "badge_awarded",
		"badges": strings.Join(names, ","),
	}

	if err := s.push.SendPush(ctx, tokens, title, body, data); err != nil {
		s.logger.Warn("badge notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}
