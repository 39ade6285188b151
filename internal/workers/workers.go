package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"kelpAPI/internal/insight"
)

const (
	insightRunTimeout = 30 * time.Minute
	resetRunTimeout   = 2 * time.Minute
)

// InsightGenerator is satisfied by services.InsightService.
type InsightGenerator interface {
	Enabled() bool
	GenerateDailyInsights(ctx context.Context, day time.Time) (*insight.RunSummary, error)
}

// WeeklyResetter is satisfied by services.ProfileService.
type WeeklyResetter interface {
	ResetWeeklyProgress(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic jobs in UTC.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *zap.Logger
}

// Start registers the daily insight job at hourUTC and the Monday 00:00 weekly
// reset, then starts the scheduler. The insight job is skipped when insights
// are not enabled.
func Start(insights InsightGenerator, resetter WeeklyResetter, hourUTC uint, logger *zap.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{sched: sched, logger: logger}

	if insights != nil && insights.Enabled() {
		_, err = sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hourUTC, 0, 0))),
			gocron.NewTask(s.runInsights, insights),
			gocron.WithName("daily-insights"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule daily insights: %w", err)
		}
		logger.Info("scheduled daily insights", zap.Uint("hour_utc", hourUTC))
	} else {
		logger.Info("daily insights disabled, no generator configured")
	}

	_, err = sched.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(s.runWeeklyReset, resetter),
		gocron.WithName("weekly-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule weekly reset: %w", err)
	}

	sched.Start()
	return s, nil
}

func (s *Scheduler) runInsights(insights InsightGenerator) {
	ctx, cancel := context.WithTimeout(context.Background(), insightRunTimeout)
	defer cancel()

	day := time.Now().UTC()
	summary, err := insights.GenerateDailyInsights(ctx, day)
	if err != nil {
		s.logger.Error("daily insights run failed", zap.Error(err))
		return
	}
	s.logger.Info("daily insights run complete",
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
	)
}

func (s *Scheduler) runWeeklyReset(resetter WeeklyResetter) {
	ctx, cancel := context.WithTimeout(context.Background(), resetRunTimeout)
	defer cancel()

	n, err := resetter.ResetWeeklyProgress(ctx)
	if err != nil {
		s.logger.Error("weekly reset failed", zap.Error(err))
		return
	}
	s.logger.Info("weekly reset complete", zap.Int64("profiles", n))
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
