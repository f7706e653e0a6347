package tracker

import "context"

// Store persists one tracker message record per guild across restarts.
type Store interface {
	// Get returns the guild's stored message, or nil with a nil error when nothing is stored.
	Get(ctx context.Context, guildID string) (*Message, error)
	// Set overwrites the record for msg.GuildID.
	Set(ctx context.Context, msg Message) error
}
