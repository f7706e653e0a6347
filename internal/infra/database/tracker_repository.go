// internal/infra/database/tracker_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boss_alert_bot/internal/domain/tracker"

	"github.com/jmoiron/sqlx"
)

const trackerSchema = `CREATE TABLE IF NOT EXISTS tracker_messages (
	guild_id   TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL DEFAULT '',
	message_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

type TrackerRepository struct {
	db *sqlx.DB
}

var _ tracker.Store = (*TrackerRepository)(nil)

func NewTrackerRepository(db *sqlx.DB) *TrackerRepository {
	return &TrackerRepository{db: db}
}

// EnsureSchema creates the tracker table when it does not exist yet.
func (r *TrackerRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, trackerSchema); err != nil {
		return fmt.Errorf("error creating tracker_messages table: %w", err)
	}
	return nil
}

func (r *TrackerRepository) Get(ctx context.Context, guildID string) (*tracker.Message, error) {
	query := r.db.Rebind(`SELECT guild_id, channel_id, message_id FROM tracker_messages WHERE guild_id = ?`)
	var msg tracker.Message
	err := r.db.GetContext(ctx, &msg, query, guildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting tracker message for guild %s: %w", guildID, err)
	}
	return &msg, nil
}

func (r *TrackerRepository) Set(ctx context.Context, msg tracker.Message) error {
	query := r.db.Rebind(`INSERT INTO tracker_messages (guild_id, channel_id, message_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			message_id = excluded.message_id,
			updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, msg.GuildID, msg.ChannelID, msg.MessageID, time.Now().UTC()); err != nil {
		return fmt.Errorf("error saving tracker message: %w", err)
	}
	return nil
}
