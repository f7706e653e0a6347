package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"boss_alert_bot/internal/domain/chat"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Adapter implements chat.Messenger on top of a discordgo session.
type Adapter struct {
	session *discordgo.Session
	limiter *rate.Limiter
}

var _ chat.Messenger = (*Adapter)(nil)

// NewAdapter paces outgoing messages at ratePerSec with the given burst, so a
// fan-out across many guilds does not trip the global rate limit.
func NewAdapter(s *discordgo.Session, ratePerSec float64, burst int) *Adapter {
	return &Adapter{
		session: s,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// translate maps Discord 404 responses (unknown message, member or role) onto chat.ErrNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", chat.ErrNotFound, err)
	}
	return err
}

func (a *Adapter) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	m, err := a.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	return m.ID, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return translate(err)
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return translate(a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (a *Adapter) FetchMessage(ctx context.Context, channelID, messageID string) (*chat.Message, error) {
	m, err := a.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return &chat.Message{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}, nil
}

func (a *Adapter) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return translate(a.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)))
}

func (a *Adapter) ListRoles(ctx context.Context, guildID string) ([]chat.Role, error) {
	roles, err := a.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	out := make([]chat.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, chat.Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (a *Adapter) CreateRole(ctx context.Context, guildID, name string) (string, error) {
	mentionable := true
	role, err := a.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	return role.ID, nil
}

func (a *Adapter) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	m, err := a.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return m.Roles, nil
}

func (a *Adapter) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return translate(a.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (a *Adapter) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	return translate(a.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

// AlertTargets reads from the gateway state cache, which the Guilds intent keeps current.
func (a *Adapter) AlertTargets(_ context.Context, channelName, roleName string) ([]chat.Target, error) {
	st := a.session.State
	if st == nil {
		return nil, errors.New("discord state cache is disabled")
	}
	st.RLock()
	defer st.RUnlock()
	return findTargets(st.Guilds, channelName, roleName), nil
}

func (a *Adapter) AlertChannels(_ context.Context, channelName string) ([]chat.Target, error) {
	st := a.session.State
	if st == nil {
		return nil, errors.New("discord state cache is disabled")
	}
	st.RLock()
	defer st.RUnlock()
	var out []chat.Target
	for _, g := range st.Guilds {
		if channelID := findTextChannel(g, channelName); channelID != "" {
			out = append(out, chat.Target{GuildID: g.ID, ChannelID: channelID})
		}
	}
	return out, nil
}

// findTextChannel returns the id of g's text channel called name, or "".
func findTextChannel(g *discordgo.Guild, name string) string {
	for _, c := range g.Channels {
		if c.Type == discordgo.ChannelTypeGuildText && c.Name == name {
			return c.ID
		}
	}
	return ""
}

func findTargets(guilds []*discordgo.Guild, channelName, roleName string) []chat.Target {
	var out []chat.Target
	for _, g := range guilds {
		channelID := findTextChannel(g, channelName)
		var role *discordgo.Role
		for _, r := range g.Roles {
			if r.Name == roleName {
				role = r
				break
			}
		}
		if channelID == "" || role == nil {
			continue
		}
		out = append(out, chat.Target{
			GuildID:     g.ID,
			ChannelID:   channelID,
			RoleID:      role.ID,
			RoleMention: role.Mention(),
		})
	}
	return out
}

func (a *Adapter) SelfID() string {
	if a.session.State == nil || a.session.State.User == nil {
		return ""
	}
	return a.session.State.User.ID
}
