package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kelpAPI/internal/insight"
)

type fakeInsights struct {
	enabled bool
	runs    int
}

func (f *fakeInsights) Enabled() bool { return f.enabled }

func (f *fakeInsights) GenerateDailyInsights(ctx context.Context, day time.Time) (*insight.RunSummary, error) {
	f.runs++
	return &insight.RunSummary{Generated: 1}, nil
}

type fakeResetter struct {
	runs int
}

func (f *fakeResetter) ResetWeeklyProgress(ctx context.Context) (int64, error) {
	f.runs++
	return 3, nil
}

func TestStartRegistersJobs(t *testing.T) {
	s, err := Start(&fakeInsights{enabled: true}, &fakeResetter{}, 6, zap.NewNop())
	require.NoError(t, err)
	defer s.Shutdown()

	assert.ElementsMatch(t, []string{"daily-insights", "weekly-reset"}, s.Jobs())
}

func TestStartSkipsDisabledInsights(t *testing.T) {
	s, err := Start(&fakeInsights{enabled: false}, &fakeResetter{}, 6, zap.NewNop())
	require.NoError(t, err)
	defer s.Shutdown()

	assert.Equal(t, []string{"weekly-reset"}, s.Jobs())
}

func TestJobBodies(t *testing.T) {
	s := &Scheduler{logger: zap.NewNop()}
	insights := &fakeInsights{enabled: true}
	resetter := &fakeResetter{}

	s.runInsights(insights)
	s.runWeeklyReset(resetter)

	assert.Equal(t, 1, insights.runs)
	assert.Equal(t, 1, resetter.runs)
}
