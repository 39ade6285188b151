package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/insight"
	"kelpAPI/internal/metrics"
	"kelpAPI/internal/store"
)

// TextGenerator is satisfied by llm.GeminiGenerator.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type insightStore interface {
	ProfileRepository
	ActivityRepository
	InsightRepository
}

type InsightService struct {
	store     insightStore
	generator TextGenerator
	now       func() time.Time
	logger    *zap.Logger
}

func NewInsightService(s insightStore, generator TextGenerator, logger *zap.Logger) *InsightService {
	return &InsightService{
		store:     s,
		generator: generator,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *InsightService) WithClock(now func() time.Time) *InsightService {
	s.now = now
	return s
}

func (s *InsightService) Enabled() bool {
	return s.generator != nil
}

func (s *InsightService) generateFor(ctx context.Context, userID string, day time.Time) error {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	since := day.AddDate(0, 0, -insight.LookbackDays)
	recent, err := s.store.ActivitiesSince(ctx, userID, since)
	if err != nil {
		return err
	}

	text, err := s.generator.Generate(ctx, insight.BuildPrompt(p, recent))
	if err != nil {
		return err
	}

	return s.store.UpsertInsight(ctx, &insight.Insight{
		UserID:    userID,
		Date:      day,
		Content:   strings.TrimSpace(text),
		CreatedAt: s.now().UTC(),
	})
}

// GenerateDailyInsights writes one insight per profile for day. Failures for
// a single user are logged and counted; the run continues.
func (s *InsightService) GenerateDailyInsights(ctx context.Context, day time.Time) (*insight.RunSummary, error) {
	if s.generator == nil {
		return nil, NewValidationError("insight generation is not configured")
	}
	day = activity.Truncate(day)

	ids, err := s.store.ListProfileIDs(ctx)
	if err != nil {
		return nil, NewPersistenceError("could not list profiles", err)
	}

	summary := &insight.RunSummary{}
	for _, id := range ids {
		if ctx.Err() != nil {
			return summary, NewPersistenceError("insight run interrupted", ctx.Err())
		}

		if err := s.generateFor(ctx, id, day); err != nil {
			s.logger.Warn("failed to generate insight", zap.String("user_id", id), zap.Error(err))
			metrics.InsightsGenerated.WithLabelValues("failed").Inc()
			summary.Failed++
			continue
		}
		metrics.InsightsGenerated.WithLabelValues("generated").Inc()
		summary.Generated++
	}

	s.logger.Info("daily insights finished",
		zap.Time("day", day),
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *InsightService) GetInsight(ctx context.Context, userID string, day time.Time) (*insight.Insight, error) {
	in, err := s.store.GetInsight(ctx, userID, activity.Truncate(day))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("no insight for today yet")
		}
		return nil, NewPersistenceError("could not load insight", err)
	}
	return in, nil
}

// Today returns userID's insight for the current UTC day.
func (s *InsightService) Today(ctx context.Context, userID string) (*insight.Insight, error) {
	return s.GetInsight(ctx, userID, s.now())
}
