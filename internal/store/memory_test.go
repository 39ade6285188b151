package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/badge"
	"kelpAPI/internal/challenge"
	"kelpAPI/internal/profile"
)

var epoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func addProfiles(t *testing.T, m *MemoryStore, n int) []*profile.Profile {
	t.Helper()
	out := make([]*profile.Profile, n)
	for i := 0; i < n; i++ {
		p := &profile.Profile{
			ID:        fmt.Sprintf("user_%03d", i),
			Username:  fmt.Sprintf("user%d", i),
			CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, m.CreateProfile(context.Background(), p))
		out[i] = p
	}
	return out
}

func TestMemoryCreateProfileConflict(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.CreateProfile(ctx, &profile.Profile{ID: "user_1"}))
	assert.ErrorIs(t, m.CreateProfile(ctx, &profile.Profile{ID: "user_1"}), ErrConflict)

	_, err := m.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegistrationIndex(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	profiles := addProfiles(t, m, 5)

	idx, err := m.RegistrationIndex(ctx, profiles[0], 10)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = m.RegistrationIndex(ctx, profiles[4], 10)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	idx, err = m.RegistrationIndex(ctx, profiles[4], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx, "index is capped at the limit")
}

func TestMemoryReferralCodes(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	addProfiles(t, m, 2)

	code, err := m.ClaimReferralCode(ctx, "user_000", "AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, "AAAA1111", code)

	code, err = m.ClaimReferralCode(ctx, "user_000", "BBBB2222")
	require.NoError(t, err)
	assert.Equal(t, "AAAA1111", code, "claim keeps the existing code")

	_, err = m.ClaimReferralCode(ctx, "user_001", "AAAA1111")
	assert.ErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, m.SetReferralCode(ctx, "user_001", "AAAA1111"), ErrConflict)
	require.NoError(t, m.SetReferralCode(ctx, "user_000", "AAAA1111"))
	assert.ErrorIs(t, m.SetReferralCode(ctx, "missing", "CCCC3333"), ErrNotFound)

	owner, err := m.FindByReferralCode(ctx, "AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, "user_000", owner.ID)

	_, err = m.FindByReferralCode(ctx, "ZZZZ9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySetReferredByOnce(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	addProfiles(t, m, 3)

	linked, err := m.SetReferredBy(ctx, "user_002", "user_000")
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = m.SetReferredBy(ctx, "user_002", "user_001")
	require.NoError(t, err)
	assert.False(t, linked)

	p, err := m.GetProfile(ctx, "user_002")
	require.NoError(t, err)
	require.NotNil(t, p.ReferredBy)
	assert.Equal(t, "user_000", *p.ReferredBy)
}

func TestMemoryAwardsAreUnique(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	d := badge.Definition{Name: "Eco Hero"}
	inserted, err := m.InsertBadge(ctx, &d)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := badge.Definition{Name: "Eco Hero"}
	inserted, err = m.InsertBadge(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	created, err := m.InsertAward(ctx, "user_1", d.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.InsertAward(ctx, "user_1", d.ID)
	require.NoError(t, err)
	assert.False(t, created)

	awards, err := m.ListAwards(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, awards, 1)
}

func TestMemoryCompletedChallenges(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.AddParticipation(challenge.Participation{UserID: "user_1", ChallengeID: uuid.New(), IsCompleted: true})
	m.AddParticipation(challenge.Participation{UserID: "user_1", ChallengeID: uuid.New(), IsCompleted: false})
	m.AddParticipation(challenge.Participation{UserID: "user_2", ChallengeID: uuid.New(), IsCompleted: true})

	n, err := m.CountCompletedChallenges(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryRecordActivity(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	addProfiles(t, m, 1)

	logged := epoch.Add(36 * time.Hour)
	updated, err := m.RecordActivity(ctx, &ActivityRecord{
		Activity: &activity.Activity{
			ID:         uuid.New(),
			UserID:     "user_000",
			Category:   activity.CategoryFood,
			KelpPoints: 30,
			CO2e:       2.5,
			LoggedAt:   logged,
		},
		NextStreak: func(current int, last *time.Time) int {
			return activity.NextStreak(current, last, logged)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.KelpPoints)
	assert.Equal(t, 2.5, updated.CO2eWeeklyProgress)
	assert.Equal(t, 1, updated.StreakCount)
	require.NotNil(t, updated.LastActivityDate)
	assert.Equal(t, activity.Truncate(logged), *updated.LastActivityDate)

	recent, err := m.ActivitiesSince(ctx, "user_000", epoch)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	n, err := m.ResetWeeklyProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryLeaderboardRanksTies(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	profiles := addProfiles(t, m, 3)

	points := []int{100, 300, 100}
	for i, p := range profiles {
		_, err := m.RecordActivity(ctx, &ActivityRecord{
			Activity:   &activity.Activity{UserID: p.ID, KelpPoints: points[i], LoggedAt: epoch},
			NextStreak: func(int, *time.Time) int { return 1 },
		})
		require.NoError(t, err)
	}

	top, err := m.TopByPoints(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "user_001", top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "user_000", top[1].UserID, "ties keep signup order")
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, "user_002", top[2].UserID)
	assert.Equal(t, 2, top[2].Rank)

	e, err := m.PointsRank(ctx, "user_002")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Rank)
}
