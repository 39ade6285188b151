package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/insight"
)

func (s *PostgresStore) UpsertInsight(ctx context.Context, in *insight.Insight) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO daily_insights (user_id, insight_date, content, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, insight_date)
	DO UPDATE SET content = EXCLUDED.content, created_at = NOW()
	`, in.UserID, activity.Truncate(in.Date), in.Content)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInsight(ctx context.Context, userID string, day time.Time) (*insight.Insight, error) {
	in := &insight.Insight{}
	err := s.db.QueryRow(ctx, `
	SELECT user_id, insight_date, content, created_at
	FROM daily_insights
	WHERE user_id = $1 AND insight_date = $2
	`, userID, activity.Truncate(day)).Scan(&in.UserID, &in.Date, &in.Content, &in.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return in, nil
}
