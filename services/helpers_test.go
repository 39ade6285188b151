package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"kelpAPI/internal/badge"
	"kelpAPI/internal/profile"
	"kelpAPI/internal/store"
)

var epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

var errBoom = errors.New("boom")

func newProfile(t *testing.T, s *store.MemoryStore, id string, mutate ...func(*profile.Profile)) *profile.Profile {
	t.Helper()
	p := &profile.Profile{ID: id, Username: id}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, s.CreateProfile(context.Background(), p))
	return p
}

func withStats(points, streak int, co2e float64) func(*profile.Profile) {
	return func(p *profile.Profile) {
		p.KelpPoints = points
		p.StreakCount = streak
		p.CO2eWeeklyProgress = co2e
	}
}

func createdAt(t time.Time) func(*profile.Profile) {
	return func(p *profile.Profile) { p.CreatedAt = t }
}

func withCode(code string) func(*profile.Profile) {
	return func(p *profile.Profile) { p.ReferralCode = &code }
}

// indexStore reports a fixed registration index so late signups can be
// simulated without creating thousands of profiles.
type indexStore struct {
	*store.MemoryStore
	index int
}

func (s *indexStore) RegistrationIndex(ctx context.Context, p *profile.Profile, limit int) (int, error) {
	return min(s.index, limit), nil
}

// flakyAwardStore fails InsertAward for a single badge.
type flakyAwardStore struct {
	*store.MemoryStore
	failBadge string
}

func (s *flakyAwardStore) InsertAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error) {
	defs, err := s.MemoryStore.ListBadges(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range defs {
		if d.ID == badgeID && d.Name == s.failBadge {
			return false, fmt.Errorf("insert %s: %w", d.Name, errBoom)
		}
	}
	return s.MemoryStore.InsertAward(ctx, userID, badgeID)
}

// flakySeedStore fails InsertBadge for a single badge name.
type flakySeedStore struct {
	*store.MemoryStore
	failBadge string
}

func (s *flakySeedStore) InsertBadge(ctx context.Context, d *badge.Definition) (bool, error) {
	if d.Name == s.failBadge {
		return false, fmt.Errorf("insert %s: %w", d.Name, errBoom)
	}
	return s.MemoryStore.InsertBadge(ctx, d)
}

// brokenChallengeStore fails the completed challenge count.
type brokenChallengeStore struct {
	*store.MemoryStore
}

func (s *brokenChallengeStore) CountCompletedChallenges(ctx context.Context, userID string) (int, error) {
	return 0, errBoom
}

type recordingNotifier struct {
	calls map[string][]string
}

func (n *recordingNotifier) NotifyBadgesAwarded(ctx context.Context, userID string, names []string) {
	if n.calls == nil {
		n.calls = map[string][]string{}
	}
	n.calls[userID] = append(n.calls[userID], names...)
}
