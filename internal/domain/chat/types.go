package chat

// Message is the subset of a platform message the bot cares about.
type Message struct {
	ID        string
	ChannelID string
	Content   string
}

type Role struct {
	ID   string
	Name string
}

// Target is a guild channel that receives boss alerts, plus the role to mention.
type Target struct {
	GuildID     string
	ChannelID   string
	RoleID      string
	RoleMention string
}

// ReactionEvent is a reaction added to or removed from a message.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}
