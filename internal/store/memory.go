package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/badge"
	"kelpAPI/internal/challenge"
	"kelpAPI/internal/insight"
	"kelpAPI/internal/leaderboard"
	"kelpAPI/internal/notification"
	"kelpAPI/internal/profile"
)

type awardKey struct {
	userID  string
	badgeID uuid.UUID
}

type insightKey struct {
	userID string
	day    time.Time
}

// MemoryStore keeps every table in process memory and enforces the same
// uniqueness rules as the Postgres schema.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	profiles       map[string]*profile.Profile
	badges         []badge.Definition
	awards         map[awardKey]badge.Award
	participations map[awardKey]challenge.Participation
	activities     []activity.Activity
	insights       map[insightKey]insight.Insight
	devices        map[string]notification.DeviceToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:            time.Now,
		profiles:       make(map[string]*profile.Profile),
		awards:         make(map[awardKey]badge.Award),
		participations: make(map[awardKey]challenge.Participation),
		insights:       make(map[insightKey]insight.Insight),
		devices:        make(map[string]notification.DeviceToken),
	}
}

// WithClock replaces the time source used for timestamps.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() {}

func copyProfile(p *profile.Profile) *profile.Profile {
	c := *p
	if p.ReferralCode != nil {
		code := *p.ReferralCode
		c.ReferralCode = &code
	}
	if p.ReferredBy != nil {
		ref := *p.ReferredBy
		c.ReferredBy = &ref
	}
	if p.LastActivityDate != nil {
		last := *p.LastActivityDate
		c.LastActivityDate = &last
	}
	return &c
}

func before(a, b *profile.Profile) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// CreateProfile keeps a non-zero CreatedAt so callers can control signup order.
func (m *MemoryStore) CreateProfile(ctx context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[p.ID]; exists {
		return ErrConflict
	}
	if p.ReferralCode != nil && m.codeOwnerLocked(*p.ReferralCode) != "" {
		return ErrConflict
	}

	now := m.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.profiles[p.ID] = copyProfile(p)
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProfile(p), nil
}

func (m *MemoryStore) RegistrationIndex(ctx context.Context, p *profile.Profile, limit int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	index := 0
	for _, other := range m.profiles {
		if before(other, p) {
			index++
			if index >= limit {
				return limit, nil
			}
		}
	}
	return index, nil
}

func (m *MemoryStore) sortedProfilesLocked() []*profile.Profile {
	all := make([]*profile.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return before(all[i], all[j]) })
	return all
}

func (m *MemoryStore) ListProfileIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedProfilesLocked()
	ids := make([]string, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}
	return ids, nil
}

func (m *MemoryStore) CountProfiles(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles), nil
}

func (m *MemoryStore) codeOwnerLocked(code string) string {
	for id, p := range m.profiles {
		if p.ReferralCode != nil && *p.ReferralCode == code {
			return id
		}
	}
	return ""
}

func (m *MemoryStore) ClaimReferralCode(ctx context.Context, id, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return "", ErrNotFound
	}
	if p.ReferralCode != nil {
		return *p.ReferralCode, nil
	}
	if owner := m.codeOwnerLocked(code); owner != "" && owner != id {
		return "", ErrConflict
	}

	p.ReferralCode = &code
	p.UpdatedAt = m.now()
	return code, nil
}

func (m *MemoryStore) SetReferralCode(ctx context.Context, id, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	if owner := m.codeOwnerLocked(code); owner != "" && owner != id {
		return ErrConflict
	}

	p.ReferralCode = &code
	p.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) FindByReferralCode(ctx context.Context, code string) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if owner := m.codeOwnerLocked(code); owner != "" {
		return copyProfile(m.profiles[owner]), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SetReferredBy(ctx context.Context, id, referrerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.ReferredBy != nil {
		return false, nil
	}

	p.ReferredBy = &referrerID
	p.UpdatedAt = m.now()
	return true, nil
}

func (m *MemoryStore) ResetWeeklyProgress(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, p := range m.profiles {
		if p.CO2eWeeklyProgress != 0 {
			p.CO2eWeeklyProgress = 0
			p.UpdatedAt = m.now()
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RecordActivity(ctx context.Context, a *ActivityRecord) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[a.Activity.UserID]
	if !ok {
		return nil, ErrNotFound
	}

	day := activity.Truncate(a.Activity.LoggedAt)
	p.StreakCount = a.NextStreak(p.StreakCount, p.LastActivityDate)
	p.KelpPoints += a.Activity.KelpPoints
	p.CO2eWeeklyProgress += a.Activity.CO2e
	p.LastActivityDate = &day
	p.UpdatedAt = m.now()

	m.activities = append(m.activities, *a.Activity)
	return copyProfile(p), nil
}

func (m *MemoryStore) ActivitiesSince(ctx context.Context, userID string, since time.Time) ([]activity.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []activity.Activity
	for _, a := range m.activities {
		if a.UserID == userID && !a.LoggedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return out, nil
}

func (m *MemoryStore) CountBadges(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.badges), nil
}

func (m *MemoryStore) InsertBadge(ctx context.Context, d *badge.Definition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.badges {
		if existing.Name == d.Name {
			return false, nil
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = m.now()

	stored := *d
	stored.Criteria = append(badge.Criteria(nil), d.Criteria...)
	m.badges = append(m.badges, stored)
	return true, nil
}

func (m *MemoryStore) ListBadges(ctx context.Context) ([]badge.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]badge.Definition, len(m.badges))
	copy(out, m.badges)
	return out, nil
}

func (m *MemoryStore) HasAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.awards[awardKey{userID, badgeID}]
	return ok, nil
}

func (m *MemoryStore) InsertAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := awardKey{userID, badgeID}
	if _, ok := m.awards[key]; ok {
		return false, nil
	}
	m.awards[key] = badge.Award{
		ID:        uuid.New(),
		UserID:    userID,
		BadgeID:   badgeID,
		AwardedAt: m.now(),
	}
	return true, nil
}

func (m *MemoryStore) ListAwards(ctx context.Context, userID string) ([]badge.Award, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []badge.Award
	for key, a := range m.awards {
		if key.userID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AwardedAt.Before(out[j].AwardedAt) })
	return out, nil
}

// AddParticipation upserts a challenge participation for (user, challenge).
func (m *MemoryStore) AddParticipation(p challenge.Participation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = m.now()
	}
	m.participations[awardKey{p.UserID, p.ChallengeID}] = p
}

func (m *MemoryStore) CountCompletedChallenges(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for key, p := range m.participations {
		if key.userID == userID && p.IsCompleted {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) rankLocked(p *profile.Profile) int {
	rank := 1
	for _, other := range m.profiles {
		if other.KelpPoints > p.KelpPoints {
			rank++
		}
	}
	return rank
}

func entryFor(p *profile.Profile, rank int) *leaderboard.LeaderboardEntry {
	e := &leaderboard.LeaderboardEntry{
		UserID:      p.ID,
		Username:    p.Username,
		KelpPoints:  p.KelpPoints,
		StreakCount: p.StreakCount,
		Rank:        rank,
	}
	if p.ImageURL != "" {
		img := p.ImageURL
		e.ImageURL = &img
	}
	return e
}

func (m *MemoryStore) TopByPoints(ctx context.Context, limit int) ([]*leaderboard.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedProfilesLocked()
	sort.SliceStable(all, func(i, j int) bool { return all[i].KelpPoints > all[j].KelpPoints })
	if len(all) > limit {
		all = all[:limit]
	}

	entries := make([]*leaderboard.LeaderboardEntry, len(all))
	for i, p := range all {
		entries[i] = entryFor(p, m.rankLocked(p))
	}
	return entries, nil
}

func (m *MemoryStore) PointsRank(ctx context.Context, userID string) (*leaderboard.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return entryFor(p, m.rankLocked(p)), nil
}

func (m *MemoryStore) UpsertInsight(ctx context.Context, in *insight.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := activity.Truncate(in.Date)
	stored := *in
	stored.Date = day
	stored.CreatedAt = m.now()
	m.insights[insightKey{in.UserID, day}] = stored
	return nil
}

func (m *MemoryStore) GetInsight(ctx context.Context, userID string, day time.Time) (*insight.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.insights[insightKey{userID, activity.Truncate(day)}]
	if !ok {
		return nil, ErrNotFound
	}
	return &in, nil
}

func (m *MemoryStore) UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *t
	if existing, ok := m.devices[t.Token]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = m.now()
	}
	m.devices[t.Token] = stored
	return nil
}

func (m *MemoryStore) ListDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []notification.DeviceToken
	for _, t := range m.devices {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}
