package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kelpAPI/internal/notification"
)

func (s *PostgresStore) UpsertDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO device_tokens (token, user_id, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`, t.Token, t.UserID, t.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
	SELECT token, user_id, platform, created_at FROM device_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}

	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.DeviceToken, error) {
		var t notification.DeviceToken
		err := row.Scan(&t.Token, &t.UserID, &t.Platform, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan device tokens: %w", err)
	}
	return tokens, nil
}
