// internal/domain/tracker/tracker.go
package tracker

// Message is a guild's canonical subscribe message users react to.
// ChannelID may be empty when the backing store only keeps the message id.
type Message struct {
	GuildID   string `db:"guild_id" json:"-"`
	ChannelID string `db:"channel_id" json:"channel_id,omitempty"`
	MessageID string `db:"message_id" json:"message_id"`
}
