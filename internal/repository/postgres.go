package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatpush/relay/internal/domain"
)

// PostgresStore implements domain.ProfileStore using PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL profile store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the profile tables if they do not exist yet.
func (r *PostgresStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			user_id    TEXT NOT NULL,
			endpoint   TEXT NOT NULL,
			p256dh     TEXT NOT NULL,
			auth       TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, endpoint)
		)`,
		`CREATE TABLE IF NOT EXISTS muted_channels (
			user_id    TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			PRIMARY KEY (user_id, channel_id)
		)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// GetProfile retrieves one user's notification profile. Unknown users get
// an empty profile.
func (r *PostgresStore) GetProfile(ctx context.Context, userID string) (*domain.NotificationProfile, error) {
	profiles, err := r.GetProfiles(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	return profiles[0], nil
}

// GetProfiles retrieves notification profiles for a batch of users. Every
// requested id gets a profile; output order follows the input.
func (r *PostgresStore) GetProfiles(ctx context.Context, userIDs []string) ([]*domain.NotificationProfile, error) {
	byID := make(map[string]*domain.NotificationProfile, len(userIDs))
	profiles := make([]*domain.NotificationProfile, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := byID[id]; ok {
			continue
		}
		profile := &domain.NotificationProfile{UserID: id}
		byID[id] = profile
		profiles = append(profiles, profile)
	}
	if len(profiles) == 0 {
		return profiles, nil
	}

	subQuery := `
		SELECT user_id, endpoint, p256dh, auth, session_id, created_at
		FROM push_subscriptions WHERE user_id = ANY($1)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, subQuery, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var sub domain.PushSubscription
		if err := rows.Scan(&userID, &sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth, &sub.SessionID, &sub.CreatedAt); err != nil {
			return nil, err
		}
		byID[userID].Subscriptions = append(byID[userID].Subscriptions, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	muteQuery := `SELECT user_id, channel_id FROM muted_channels WHERE user_id = ANY($1)`
	muteRows, err := r.db.Query(ctx, muteQuery, userIDs)
	if err != nil {
		return nil, err
	}
	defer muteRows.Close()

	for muteRows.Next() {
		var userID, channelID string
		if err := muteRows.Scan(&userID, &channelID); err != nil {
			return nil, err
		}
		byID[userID].MutedChannels = append(byID[userID].MutedChannels, channelID)
	}
	if err := muteRows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// PutSubscriptions replaces the user's subscription collection. The replace
// runs in a transaction, but fetch-then-put across calls is still
// last-writer-wins.
func (r *PostgresStore) PutSubscriptions(ctx context.Context, userID string, subs []domain.PushSubscription) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1`, userID); err != nil {
		return err
	}

	insert := `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, endpoint) DO NOTHING
	`
	for _, sub := range subs {
		createdAt := sub.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx, insert, userID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, sub.SessionID, createdAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SetChannelMuted flips the mute flag for one (user, channel) pair.
func (r *PostgresStore) SetChannelMuted(ctx context.Context, userID, channelID string, muted bool) error {
	if muted {
		query := `
			INSERT INTO muted_channels (user_id, channel_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, channel_id) DO NOTHING
		`
		_, err := r.db.Exec(ctx, query, userID, channelID)
		return err
	}

	_, err := r.db.Exec(ctx, `DELETE FROM muted_channels WHERE user_id = $1 AND channel_id = $2`, userID, channelID)
	return err
}

// CleanupExpiredSubscriptions deletes subscriptions registered before the
// cutoff and returns how many were removed. Safe to run repeatedly.
func (r *PostgresStore) CleanupExpiredSubscriptions(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
