package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"kelpAPI/internal/badge"
	"kelpAPI/internal/metrics"
	"kelpAPI/internal/store"
)

// BadgeNotifier is told about badges right after they are awarded.
type BadgeNotifier interface {
	NotifyBadgesAwarded(ctx context.Context, userID string, names []string)
}

type badgeStore interface {
	ProfileRepository
	BadgeRepository
	ChallengeRepository
}

type BadgeService struct {
	store    badgeStore
	notifier BadgeNotifier
	seed     func() []badge.Definition
	logger   *zap.Logger
}

func NewBadgeService(s badgeStore, logger *zap.Logger) *BadgeService {
	return &BadgeService{
		store:  s,
		seed:   badge.Seed,
		logger: logger,
	}
}

func (s *BadgeService) SetNotifier(n BadgeNotifier) {
	s.notifier = n
}

// EnsureSeeded inserts the seed catalog when no badge exists yet. Each insert
// is ignore-on-conflict by name, so concurrent first calls cannot duplicate.
func (s *BadgeService) EnsureSeeded(ctx context.Context) error {
	count, err := s.store.CountBadges(ctx)
	if err != nil {
		return NewPersistenceError("could not load badges", err)
	}
	if count > 0 {
		return nil
	}

	for _, def := range s.seed() {
		d := def
		inserted, err := s.store.InsertBadge(ctx, &d)
		if err != nil {
			s.logger.Error("failed to seed badge", zap.String("badge", d.Name), zap.Error(err))
			continue
		}
		if inserted {
			s.logger.Info("seeded badge", zap.String("badge", d.Name))
		}
	}
	return nil
}

func (s *BadgeService) metricsFor(ctx context.Context, userID string) (badge.Metrics, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return badge.Metrics{}, NewNotFoundError("profile not found")
		}
		return badge.Metrics{}, NewPersistenceError("could not award badges", err)
	}

	index, err := s.store.RegistrationIndex(ctx, p, badge.OGMemberLimit)
	if err != nil {
		return badge.Metrics{}, NewPersistenceError("could not award badges", err)
	}

	completed, err := s.store.CountCompletedChallenges(ctx, userID)
	if err != nil {
		return badge.Metrics{}, NewPersistenceError("could not award badges", err)
	}

	return badge.Metrics{
		KelpPoints:          float64(p.KelpPoints),
		CO2eOffset:          p.CO2eWeeklyProgress,
		Streak:              float64(p.StreakCount),
		ChallengesCompleted: float64(completed),
		RegistrationIndex:   index,
	}, nil
}

// EvaluateAndAward awards every badge the user newly qualifies for and
// returns their names. A storage failure on one badge is logged and skipped
// so the rest of the catalog is still evaluated.
func (s *BadgeService) EvaluateAndAward(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewValidationError("user_id is required")
	}

	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	m, err := s.metricsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	defs, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, NewPersistenceError("could not award badges", err)
	}

	awarded := []string{}
	for _, d := range defs {
		if !d.EarnedBy(m) {
			continue
		}

		log := s.logger.With(zap.String("user_id", userID), zap.String("badge", d.Name))

		has, err := s.store.HasAward(ctx, userID, d.ID)
		if err != nil {
			log.Error("failed to check award", zap.Error(err))
			metrics.BadgeAwardFailures.Inc()
			continue
		}
		if has {
			continue
		}

		inserted, err := s.store.InsertAward(ctx, userID, d.ID)
		if err != nil {
			log.Error("failed to insert award", zap.Error(err))
			metrics.BadgeAwardFailures.Inc()
			continue
		}
		if !inserted {
			// Lost a race with a concurrent evaluation.
			continue
		}

		log.Info("badge awarded")
		metrics.BadgesAwarded.WithLabelValues(d.Name).Inc()
		awarded = append(awarded, d.Name)
	}

	if len(awarded) > 0 && s.notifier != nil {
		s.notifier.NotifyBadgesAwarded(ctx, userID, awarded)
	}

	return awarded, nil
}

// ListBadges returns the catalog with the user's unlock status, unlocked first.
func (s *BadgeService) ListBadges(ctx context.Context, userID string) ([]*badge.WithStatus, error) {
	if _, err := s.store.GetProfile(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("profile not found")
		}
		return nil, NewPersistenceError("could not load badges", err)
	}

	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}

	defs, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, NewPersistenceError("could not load badges", err)
	}
	awards, err := s.store.ListAwards(ctx, userID)
	if err != nil {
		return nil, NewPersistenceError("could not load badges", err)
	}

	unlocked := make(map[string]badge.Award, len(awards))
	for _, a := range awards {
		unlocked[a.BadgeID.String()] = a
	}

	out := make([]*badge.WithStatus, 0, len(defs))
	for _, d := range defs {
		ws := &badge.WithStatus{Definition: d}
		if a, ok := unlocked[d.ID.String()]; ok {
			at := a.AwardedAt
			ws.Unlocked = true
			ws.UnlockedAt = &at
		}
		out = append(out, ws)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Unlocked && !out[j].Unlocked
	})
	return out, nil
}
