package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"kelpAPI/internal/profile"
	"kelpAPI/internal/store"
)

type ProfileService struct {
	store  ProfileRepository
	logger *zap.Logger
}

func NewProfileService(s ProfileRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: s, logger: logger}
}

// CreateProfile provisions a profile for a new account. It reports created
// false when the profile already exists, so webhook redeliveries are harmless.
func (s *ProfileService) CreateProfile(ctx context.Context, req *profile.CreateProfileRequest) (*profile.Profile, bool, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, false, NewValidationError("id is required")
	}

	p := &profile.Profile{
		ID:       id,
		Username: strings.TrimSpace(req.Username),
		ImageURL: req.ImageURL,
	}

	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			existing, getErr := s.store.GetProfile(ctx, id)
			if getErr != nil {
				return nil, false, NewPersistenceError("could not create profile", getErr)
			}
			return existing, false, nil
		}
		return nil, false, NewPersistenceError("could not create profile", err)
	}

	s.logger.Info("profile created", zap.String("user_id", id))
	return p, true, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("profile not found")
		}
		return nil, NewPersistenceError("could not load profile", err)
	}
	return p, nil
}

// ResetWeeklyProgress zeroes every profile's weekly CO2e counter.
func (s *ProfileService) ResetWeeklyProgress(ctx context.Context) (int64, error) {
	n, err := s.store.ResetWeeklyProgress(ctx)
	if err != nil {
		return 0, NewPersistenceError("could not reset weekly progress", err)
	}
	s.logger.Info("weekly progress reset", zap.Int64("profiles", n))
	return n, nil
}
