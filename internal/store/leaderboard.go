package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kelpAPI/internal/leaderboard"
)

func (s *PostgresStore) TopByPoints(ctx context.Context, limit int) ([]*leaderboard.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, username, NULLIF(image_url, ''), kelp_points, streak_count,
		RANK() OVER (ORDER BY kelp_points DESC) AS rank
	FROM profiles
	ORDER BY kelp_points DESC, created_at ASC, id ASC
	LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.LeaderboardEntry
	for rows.Next() {
		e := &leaderboard.LeaderboardEntry{}
		if err := rows.Scan(&e.UserID, &e.Username, &e.ImageURL, &e.KelpPoints, &e.StreakCount, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}

// PointsRank returns the user's entry where rank is one more than the number
// of profiles with strictly more points.
func (s *PostgresStore) PointsRank(ctx context.Context, userID string) (*leaderboard.LeaderboardEntry, error) {
	e := &leaderboard.LeaderboardEntry{}
	err := s.db.QueryRow(ctx, `
	SELECT p.id, p.username, NULLIF(p.image_url, ''), p.kelp_points, p.streak_count,
		1 + (SELECT COUNT(*) FROM profiles o WHERE o.kelp_points > p.kelp_points) AS rank
	FROM profiles p
	WHERE p.id = $1
	`, userID).Scan(&e.UserID, &e.Username, &e.ImageURL, &e.KelpPoints, &e.StreakCount, &e.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to compute rank: %w", err)
	}
	return e, nil
}
