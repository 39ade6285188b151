package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/store"
)

// BadgeEvaluator is the part of BadgeService activity logging depends on.
type BadgeEvaluator interface {
	EvaluateAndAward(ctx context.Context, userID string) ([]string, error)
}

type ActivityService struct {
	store  ActivityRepository
	badges BadgeEvaluator
	now    func() time.Time
	logger *zap.Logger
}

func NewActivityService(s ActivityRepository, badges BadgeEvaluator, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		store:  s,
		badges: badges,
		now:    time.Now,
		logger: logger,
	}
}

func (s *ActivityService) WithClock(now func() time.Time) *ActivityService {
	s.now = now
	return s
}

// LogActivity records an activity, credits its points and CO2e to the
// profile, then evaluates badges. A failed evaluation does not fail the log.
func (s *ActivityService) LogActivity(ctx context.Context, userID string, req *activity.LogRequest) (*activity.LogResult, error) {
	points, ok := activity.PointsFor(req.Category)
	if !ok {
		return nil, NewValidationError("unknown activity category")
	}
	if math.IsNaN(req.CO2e) || req.CO2e < 0 || req.CO2e > activity.MaxCO2e {
		return nil, NewValidationError("co2e must be between 0 and 1000")
	}

	loggedAt := s.now().UTC()
	a := &activity.Activity{
		ID:          uuid.New(),
		UserID:      userID,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		KelpPoints:  points,
		CO2e:        req.CO2e,
		LoggedAt:    loggedAt,
	}

	updated, err := s.store.RecordActivity(ctx, &store.ActivityRecord{
		Activity: a,
		NextStreak: func(current int, last *time.Time) int {
			return activity.NextStreak(current, last, loggedAt)
		},
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("profile not found")
		}
		return nil, NewPersistenceError("could not log activity", err)
	}

	s.logger.Info("activity logged",
		zap.String("user_id", userID),
		zap.String("category", string(a.Category)),
		zap.Int("kelp_points", a.KelpPoints),
		zap.Float64("co2e", a.CO2e),
	)

	newBadges := []string{}
	if s.badges != nil {
		awarded, err := s.badges.EvaluateAndAward(ctx, userID)
		if err != nil {
			s.logger.Error("badge evaluation after activity failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			newBadges = awarded
		}
	}

	return &activity.LogResult{
		Activity:  a,
		Profile:   updated,
		NewBadges: newBadges,
	}, nil
}
