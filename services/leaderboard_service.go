package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kelpAPI/internal/cache"
	"kelpAPI/internal/leaderboard"
	"kelpAPI/internal/store"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// JSONCache is satisfied by cache.RedisCache.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type LeaderboardService struct {
	store  LeaderboardRepository
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLeaderboardService builds the service; c may be nil to disable caching.
func NewLeaderboardService(s LeaderboardRepository, c JSONCache, ttl time.Duration, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  s,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func ClampLeaderboardLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	default:
		return limit
	}
}

func (s *LeaderboardService) top(ctx context.Context, limit int) ([]*leaderboard.LeaderboardEntry, error) {
	key := fmt.Sprintf("leaderboard:points:%d", limit)

	if s.cache != nil {
		var cached []*leaderboard.LeaderboardEntry
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		}
	}

	entries, err := s.store.TopByPoints(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, entries, s.ttl); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

// GetLeaderboard returns the top profiles by Kelp Points and userID's own position.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, userID string, limit int) (*leaderboard.Leaderboard, error) {
	limit = ClampLeaderboardLimit(limit)

	entries, err := s.top(ctx, limit)
	if err != nil {
		return nil, NewPersistenceError("could not load leaderboard", err)
	}

	position, err := s.store.PointsRank(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("profile not found")
		}
		return nil, NewPersistenceError("could not load leaderboard", err)
	}

	total, err := s.store.CountProfiles(ctx)
	if err != nil {
		return nil, NewPersistenceError("could not load leaderboard", err)
	}

	return &leaderboard.Leaderboard{
		Entries:      entries,
		UserPosition: position,
		TotalUsers:   total,
	}, nil
}
