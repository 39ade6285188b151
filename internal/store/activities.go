package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kelpAPI/internal/activity"
)

// ActivityRecord is an activity to persist together with the rule that
// derives the new streak from the locked profile state.
type ActivityRecord struct {
	Activity   *activity.Activity
	NextStreak func(current int, last *time.Time) int
}

func (s *PostgresStore) ActivitiesSince(ctx context.Context, userID string, since time.Time) ([]activity.Activity, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, category, description, kelp_points, co2e, logged_at
	FROM activities
	WHERE user_id = $1 AND logged_at >= $2
	ORDER BY logged_at DESC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	activities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (activity.Activity, error) {
		var (
			a        activity.Activity
			category string
		)
		err := row.Scan(&a.ID, &a.UserID, &category, &a.Description, &a.KelpPoints, &a.CO2e, &a.LoggedAt)
		a.Category = activity.Category(category)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan activities: %w", err)
	}
	return activities, nil
}
