package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"kelpAPI/internal/badge"
)

func (s *PostgresStore) CountBadges(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM badges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count badges: %w", err)
	}
	return n, nil
}

// InsertBadge adds d to the catalog unless a badge with the same name exists.
// It reports whether a row was created.
func (s *PostgresStore) InsertBadge(ctx context.Context, d *badge.Definition) (bool, error) {
	criteria, err := json.Marshal(d.Criteria)
	if err != nil {
		return false, fmt.Errorf("failed to encode criteria: %w", err)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	tag, err := s.db.Exec(ctx, `
	INSERT INTO badges (id, name, description, is_og_badge, icon, criteria)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name) DO NOTHING
	`, d.ID, d.Name, d.Description, d.IsOGBadge, d.Icon, criteria)
	if err != nil {
		return false, fmt.Errorf("failed to insert badge %s: %w", d.Name, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListBadges(ctx context.Context) ([]badge.Definition, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, name, description, is_og_badge, icon, criteria, created_at
	FROM badges
	ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch badges: %w", err)
	}
	defer rows.Close()

	var defs []badge.Definition
	for rows.Next() {
		var (
			d        badge.Definition
			criteria []byte
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.IsOGBadge, &d.Icon, &criteria, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		if err := json.Unmarshal(criteria, &d.Criteria); err != nil {
			s.logger.Sugar().Warnf("badge %s has invalid criteria, skipping: %v", d.Name, err)
			continue
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read badges: %w", err)
	}
	return defs, nil
}

func (s *PostgresStore) HasAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
	SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)
	`, userID, badgeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check award: %w", err)
	}
	return exists, nil
}

// InsertAward records the award once; a concurrent duplicate is a no-op that
// reports false.
func (s *PostgresStore) InsertAward(ctx context.Context, userID string, badgeID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
	INSERT INTO user_badges (id, user_id, badge_id, awarded_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, badge_id) DO NOTHING
	`, uuid.New(), userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("failed to insert award: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListAwards(ctx context.Context, userID string) ([]badge.Award, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, badge_id, awarded_at FROM user_badges WHERE user_id = $1 ORDER BY awarded_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch awards: %w", err)
	}

	awards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (badge.Award, error) {
		var a badge.Award
		err := row.Scan(&a.ID, &a.UserID, &a.BadgeID, &a.AwardedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan awards: %w", err)
	}
	return awards, nil
}

func (s *PostgresStore) CountCompletedChallenges(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
	SELECT COUNT(*) FROM challenge_participants WHERE user_id = $1 AND is_completed
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed challenges: %w", err)
	}
	return n, nil
}
