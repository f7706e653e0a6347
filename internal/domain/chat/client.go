package chat

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a message, member or role no longer exists on
// the platform. Callers treat it as a steady-state condition.
var ErrNotFound = errors.New("chat: not found")

// Publisher sends and removes plain messages in a channel.
type Publisher interface {
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Messenger decouples the application from the chat platform library.
type Messenger interface {
	Publisher

	EditMessage(ctx context.Context, channelID, messageID, content string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	ListRoles(ctx context.Context, guildID string) ([]Role, error)
	CreateRole(ctx context.Context, guildID, name string) (roleID string, err error)
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error

	// AlertTargets lists every guild having both a text channel named
	// channelName and a role named roleName.
	AlertTargets(ctx context.Context, channelName, roleName string) ([]Target, error)
	// AlertChannels lists every guild having a text channel named channelName,
	// whether or not the role exists yet. RoleID is left empty.
	AlertChannels(ctx context.Context, channelName string) ([]Target, error)
	// SelfID is the bot's own user id.
	SelfID() string
}
