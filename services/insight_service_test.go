package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/store"
)

type stubGenerator struct {
	prompts []string
	failFor string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.failFor != "" && strings.Contains(prompt, g.failFor) {
		return "", errBoom
	}
	return "  Nice work this week!  ", nil
}

func TestGenerateDailyInsights(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1", withStats(120, 2, 4))
	newProfile(t, mem, "user_2", withStats(777, 0, 0))
	newProfile(t, mem, "user_3")
	gen := &stubGenerator{failFor: "Kelp Points: 777"}
	svc := NewInsightService(mem, gen, zap.NewNop()).WithClock(func() time.Time { return epoch })
	ctx := context.Background()

	summary, err := svc.GenerateDailyInsights(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Generated)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, gen.prompts, 3)

	in, err := svc.Today(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Nice work this week!", in.Content)
	assert.Equal(t, activity.Truncate(epoch), in.Date)

	_, err = svc.Today(ctx, "user_2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateDailyInsightsUsesRecentActivities(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1")
	gen := &stubGenerator{}

	acts := NewActivityService(mem, nil, zap.NewNop())
	for _, at := range []time.Time{epoch.AddDate(0, 0, -10), epoch.AddDate(0, 0, -1)} {
		acts.WithClock(func() time.Time { return at })
		_, err := acts.LogActivity(context.Background(), "user_1", &activity.LogRequest{
			Category: activity.CategoryWaste,
			CO2e:     2,
		})
		require.NoError(t, err)
	}

	svc := NewInsightService(mem, gen, zap.NewNop())
	_, err := svc.GenerateDailyInsights(context.Background(), epoch)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Activities in the last 7 days: 1")
	assert.Contains(t, gen.prompts[0], "- waste: 2.0 kg CO2e")
}

func TestGenerateDailyInsightsDisabled(t *testing.T) {
	svc := NewInsightService(store.NewMemoryStore(), nil, zap.NewNop())

	assert.False(t, svc.Enabled())
	_, err := svc.GenerateDailyInsights(context.Background(), epoch)
	assert.ErrorIs(t, err, ErrValidation)
}
