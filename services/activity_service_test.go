package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/store"
)

type failingEvaluator struct{}

func (failingEvaluator) EvaluateAndAward(ctx context.Context, userID string) ([]string, error) {
	return nil, NewPersistenceError("could not award badges", errBoom)
}

func TestLogActivityCreditsProfile(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1", createdAt(epoch.Add(-time.Hour)))
	svc := NewActivityService(mem, nil, zap.NewNop()).WithClock(func() time.Time { return epoch })

	res, err := svc.LogActivity(context.Background(), "user_1", &activity.LogRequest{
		Category:    activity.CategoryTransport,
		Description: "  biked to work ",
		CO2e:        3.2,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, res.Activity.KelpPoints)
	assert.Equal(t, "biked to work", res.Activity.Description)
	assert.Equal(t, 50, res.Profile.KelpPoints)
	assert.InDelta(t, 3.2, res.Profile.CO2eWeeklyProgress, 1e-9)
	assert.Equal(t, 1, res.Profile.StreakCount)
	assert.Empty(t, res.NewBadges)
}

func TestLogActivityStreak(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1")
	now := epoch
	svc := NewActivityService(mem, nil, zap.NewNop()).WithClock(func() time.Time { return now })
	ctx := context.Background()
	req := &activity.LogRequest{Category: activity.CategoryFood}

	steps := []struct {
		at     time.Time
		streak int
	}{
		{epoch, 1},
		{epoch.Add(2 * time.Hour), 1},
		{epoch.Add(24 * time.Hour), 2},
		{epoch.Add(48 * time.Hour), 3},
		{epoch.Add(5 * 24 * time.Hour), 1},
	}
	for _, step := range steps {
		now = step.at
		res, err := svc.LogActivity(ctx, "user_1", req)
		require.NoError(t, err)
		assert.Equal(t, step.streak, res.Profile.StreakCount, step.at.String())
	}
}

func TestLogActivityAwardsCrossedBadge(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1", withStats(470, 0, 0))
	badges := NewBadgeService(&indexStore{MemoryStore: mem, index: 20000}, zap.NewNop())
	svc := NewActivityService(mem, badges, zap.NewNop())

	res, err := svc.LogActivity(context.Background(), "user_1", &activity.LogRequest{Category: activity.CategoryFood})
	require.NoError(t, err)
	assert.Equal(t, 500, res.Profile.KelpPoints)
	assert.Equal(t, []string{"Eco Hero"}, res.NewBadges)
}

func TestLogActivitySurvivesEvaluationFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1")
	svc := NewActivityService(mem, failingEvaluator{}, zap.NewNop())

	res, err := svc.LogActivity(context.Background(), "user_1", &activity.LogRequest{Category: activity.CategoryOther})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Profile.KelpPoints)
	assert.NotNil(t, res.NewBadges)
	assert.Empty(t, res.NewBadges)
}

func TestLogActivityValidation(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1")
	svc := NewActivityService(mem, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.LogActivity(ctx, "user_1", &activity.LogRequest{Category: "flying"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.LogActivity(ctx, "user_1", &activity.LogRequest{Category: activity.CategoryEnergy, CO2e: 1000.5})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.LogActivity(ctx, "user_1", &activity.LogRequest{Category: activity.CategoryEnergy, CO2e: -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.LogActivity(ctx, "ghost", &activity.LogRequest{Category: activity.CategoryEnergy})
	assert.ErrorIs(t, err, ErrNotFound)
}
