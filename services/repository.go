package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/badge"
	"kelpAPI/internal/insight"
	"kelpAPI/internal/leaderboard"
	"kelpAPI/internal/notification"
	"kelpAPI/internal/profile"
	"kelpAPI/internal/store"
)

// Repositories report store.ErrNotFound and store.ErrConflict; services
// translate them into ServiceError kinds.

type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *profile.Profile) error
	GetProfile(ctx context.Context, id string) (*profile.Profile, error)
	RegistrationIndex(ctx context.Context, p *profile.Profile, limit int) (int, error)
	ListProfileIDs(ctx context.Context) ([]string, error)
	ClaimReferralCode(ctx context.Context, id, code string) (string, error)
	SetReferralCode(ctx context.Context, id, code string) error
	FindByReferralCode(ctx context.Context, code string) (*profile.Profile, error)
	SetReferredBy(ctx context.Context, id, referrerID string) (bool, error)
	ResetWeeklyProgress(ctx context.Context) (int64, error)
}

type BadgeRepository interface {
	CountBadges(ctx context.Context) (int, error)
	InsertBadge(ctx context.Context, d *badge.Definition) (bool, error)
	ListBadges(ctx context.Context) ([]badge.Definition, error)
	HasAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error)
	InsertAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error)
	ListAwards(ctx context.Context, userID string) ([]badge.Award, error)
}

type ChallengeRepository interface {
	CountCompletedChallenges(ctx context.Context, userID string) (int, error)
}

type ActivityRepository interface {
	RecordActivity(ctx context.Context, a *store.ActivityRecord) (*profile.Profile, error)
	ActivitiesSince(ctx context.Context, userID string, since time.Time) ([]activity.Activity, error)
}

type LeaderboardRepository interface {
	TopByPoints(ctx context.Context, limit int) ([]*leaderboard.LeaderboardEntry, error)
	PointsRank(ctx context.Context, userID string) (*leaderboard.LeaderboardEntry, error)
	CountProfiles(ctx context.Context) (int, error)
}

type InsightRepository interface {
	UpsertInsight(ctx context.Context, in *insight.Insight) error
	GetInsight(ctx context.Context, userID string, day time.Time) (*insight.Insight, error)
}

type DeviceRepository interface {
	UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)
}

// Store is everything the service layer needs from persistence.
type Store interface {
	ProfileRepository
	BadgeRepository
	ChallengeRepository
	ActivityRepository
	LeaderboardRepository
	InsightRepository
	DeviceRepository
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*store.PostgresStore)(nil)
	_ Store = (*store.MemoryStore)(nil)
)
