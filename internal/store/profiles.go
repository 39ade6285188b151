package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/profile"
)

const profileColumns = `
	id, username, image_url,
	COALESCE(kelp_points, 0), COALESCE(streak_count, 0), COALESCE(co2e_weekly_progress, 0),
	referral_code, referred_by, last_activity_date, created_at, updated_at`

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.ImageURL,
		&p.KelpPoints,
		&p.StreakCount,
		&p.CO2eWeeklyProgress,
		&p.ReferralCode,
		&p.ReferredBy,
		&p.LastActivityDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p *profile.Profile) error {
	query := `
	INSERT INTO profiles (id, username, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	RETURNING ` + profileColumns

	created, err := scanProfile(s.db.QueryRow(ctx, query, p.ID, p.Username, p.ImageURL))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	*p = *created
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// RegistrationIndex counts profiles created before p, stopping at limit.
// The (created_at, id) index keeps this bounded regardless of table size.
func (s *PostgresStore) RegistrationIndex(ctx context.Context, p *profile.Profile, limit int) (int, error) {
	query := `
	SELECT COUNT(*) FROM (
		SELECT 1 FROM profiles
		WHERE (created_at, id) < ($1, $2)
		ORDER BY created_at, id
		LIMIT $3
	) earlier
	`

	var index int
	if err := s.db.QueryRow(ctx, query, p.CreatedAt, p.ID, limit).Scan(&index); err != nil {
		return 0, fmt.Errorf("failed to compute registration index: %w", err)
	}
	return index, nil
}

func (s *PostgresStore) ListProfileIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) CountProfiles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

// ClaimReferralCode stores code only if the profile has none, and returns
// whichever code is stored afterwards.
func (s *PostgresStore) ClaimReferralCode(ctx context.Context, id, code string) (string, error) {
	query := `
	UPDATE profiles
	SET referral_code = COALESCE(referral_code, $2), updated_at = NOW()
	WHERE id = $1
	RETURNING referral_code
	`

	var stored string
	err := s.db.QueryRow(ctx, query, id, code).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		if isUniqueViolation(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("failed to claim referral code: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) SetReferralCode(ctx context.Context, id, code string) error {
	tag, err := s.db.Exec(ctx, `UPDATE profiles SET referral_code = $2, updated_at = NOW() WHERE id = $1`, id, code)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to set referral code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByReferralCode(ctx context.Context, code string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE referral_code = $1 LIMIT 1`

	p, err := scanProfile(s.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find referral code: %w", err)
	}
	return p, nil
}

// SetReferredBy links id to its referrer once. It reports false when the
// profile was already linked.
func (s *PostgresStore) SetReferredBy(ctx context.Context, id, referrerID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
	UPDATE profiles SET referred_by = $2, updated_at = NOW()
	WHERE id = $1 AND referred_by IS NULL
	`, id, referrerID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check profile: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *PostgresStore) ResetWeeklyProgress(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
	UPDATE profiles SET co2e_weekly_progress = 0, updated_at = NOW()
	WHERE co2e_weekly_progress <> 0
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset weekly progress: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecordActivity inserts a and applies its points, CO2e and streak to the
// owning profile in a single transaction.
func (s *PostgresStore) RecordActivity(ctx context.Context, a *ActivityRecord) (*profile.Profile, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		streak int
		last   *time.Time
	)
	err = tx.QueryRow(ctx, `
	SELECT COALESCE(streak_count, 0), last_activity_date FROM profiles WHERE id = $1 FOR UPDATE
	`, a.Activity.UserID).Scan(&streak, &last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock profile: %w", err)
	}

	nextStreak := a.NextStreak(streak, last)

	_, err = tx.Exec(ctx, `
	INSERT INTO activities (id, user_id, category, description, kelp_points, co2e, logged_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		a.Activity.ID,
		a.Activity.UserID,
		string(a.Activity.Category),
		a.Activity.Description,
		a.Activity.KelpPoints,
		a.Activity.CO2e,
		a.Activity.LoggedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert activity: %w", err)
	}

	query := `
	UPDATE profiles SET
		kelp_points = COALESCE(kelp_points, 0) + $2,
		co2e_weekly_progress = COALESCE(co2e_weekly_progress, 0) + $3,
		streak_count = $4,
		last_activity_date = $5,
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + profileColumns

	updated, err := scanProfile(tx.QueryRow(ctx, query,
		a.Activity.UserID,
		a.Activity.KelpPoints,
		a.Activity.CO2e,
		nextStreak,
		activity.Truncate(a.Activity.LoggedAt),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit activity: %w", err)
	}
	return updated, nil
}
