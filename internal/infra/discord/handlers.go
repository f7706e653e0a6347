package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boss_alert_bot/internal/app"
	"boss_alert_bot/internal/domain/boss"
	"boss_alert_bot/internal/domain/chat"
	"boss_alert_bot/internal/domain/tracker"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	CommandSubscribe = "알림"
	CommandUpcoming  = "보스"
	CommandClock     = "시간"

	// Intents covers channel/role cache, reactions and member role lookups.
	Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers
)

// ReactionHandler reacts to reactions on the tracker message.
type ReactionHandler interface {
	HandleReactionAdded(ctx context.Context, ev chat.ReactionEvent) error
	HandleReactionRemoved(ctx context.Context, ev chat.ReactionEvent) error
}

// TrackerCommands backs the slash commands and per-guild provisioning.
type TrackerCommands interface {
	Ensure(ctx context.Context, guildID, channelID string) (*tracker.Message, app.EnsureOutcome, error)
	Upcoming() ([]boss.Occurrence, time.Time)
	Now() time.Time
}

// Handlers routes gateway events to the application services.
type Handlers struct {
	reactions   ReactionHandler
	tracker     TrackerCommands
	channelName string
	timeout     time.Duration
	logger      *logrus.Entry
}

func NewHandlers(reactions ReactionHandler, tracker TrackerCommands, channelName string, logger *logrus.Entry) *Handlers {
	return &Handlers{
		reactions:   reactions,
		tracker:     tracker,
		channelName: channelName,
		timeout:     15 * time.Second,
		logger:      logger,
	}
}

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandSubscribe,
			Description: "보스 알림 역할을 받을 수 있는 메시지를 생성하거나 갱신합니다.",
		},
		{
			Name:        CommandUpcoming,
			Description: "앞으로 한 시간 동안 등장할 보스를 보여줍니다.",
		},
		{
			Name:        CommandClock,
			Description: "보스 시간표 기준의 현재 시각을 보여줍니다.",
		},
	}
}

// Register attaches the gateway handlers. Call before Open.
func (h *Handlers) Register(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onGuildCreate)
	s.AddHandler(h.onReactionAdd)
	s.AddHandler(h.onReactionRemove)
	s.AddHandler(h.onInteraction)
}

// RegisterCommands overwrites the application's commands. An empty guildID registers them globally.
func RegisterCommands(s *discordgo.Session, guildID string) error {
	if s.State == nil || s.State.User == nil {
		return fmt.Errorf("session is not ready")
	}
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands())
	if err != nil {
		return fmt.Errorf("failed to register slash commands: %w", err)
	}
	return nil
}

func (h *Handlers) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	h.logger.WithFields(logrus.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("Connected to Discord gateway")
}

// onGuildCreate fires for every guild once the gateway is ready and whenever
// the bot joins a new one, so each guild gets its tracker without a command.
func (h *Handlers) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	h.provision(g.Guild)
}

func (h *Handlers) provision(g *discordgo.Guild) {
	log := h.logger.WithFields(logrus.Fields{
		"guild_id":   g.ID,
		"guild_name": g.Name,
	})
	channelID := findTextChannel(g, h.channelName)
	if channelID == "" {
		log.WithField("channel", h.channelName).Warn("Alert channel not found, skipping tracker")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	msg, outcome, err := h.tracker.Ensure(ctx, g.ID, channelID)
	switch {
	case err == nil:
		log.WithFields(logrus.Fields{
			"message_id": msg.MessageID,
			"outcome":    outcome.String(),
		}).Info("Tracker message ready")
	case errors.Is(err, app.ErrReactionsIncomplete):
		log.WithError(err).Warn("Tracker message ready without all reactions")
	default:
		log.WithError(err).Error("Failed to provision tracker message")
	}
}

func reactionEvent(r *discordgo.MessageReaction) chat.ReactionEvent {
	return chat.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	}
}

func (h *Handlers) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	h.dispatchReaction("reaction_add", reactionEvent(r.MessageReaction), h.reactions.HandleReactionAdded)
}

func (h *Handlers) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	h.dispatchReaction("reaction_remove", reactionEvent(r.MessageReaction), h.reactions.HandleReactionRemoved)
}

func (h *Handlers) dispatchReaction(name string, ev chat.ReactionEvent, fn func(context.Context, chat.ReactionEvent) error) {
	// DM reactions carry no guild and cannot map to a role.
	if ev.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := fn(ctx, ev); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"handler":  name,
			"guild_id": ev.GuildID,
			"user_id":  ev.UserID,
		}).Error("Failed to sync notification role")
	}
}

func (h *Handlers) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case CommandSubscribe:
		h.handleSubscribe(s, i)
	case CommandUpcoming:
		h.respond(s, i, CommandUpcoming, app.FormatUpcoming(h.tracker.Upcoming()))
	case CommandClock:
		h.respond(s, i, CommandClock, app.FormatClock(h.tracker.Now()))
	}
}

func invokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func channelNameOf(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

// inAlertChannel reports whether channelID is the configured alert channel.
func (h *Handlers) inAlertChannel(s *discordgo.Session, channelID string) bool {
	return channelNameOf(s, channelID) == h.channelName
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

func (h *Handlers) handleSubscribe(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":    "/" + CommandSubscribe,
		"sender_id":  invokerID(i),
		"guild_id":   i.GuildID,
		"channel_id": i.ChannelID,
	})
	handlerLogger.Info("Command received")

	if i.GuildID == "" || !h.inAlertChannel(s, i.ChannelID) {
		handlerLogger.Warn("Command used outside the alert channel")
		if err := s.InteractionRespond(i.Interaction, ephemeral(wrongChannelReply(h.channelName))); err != nil {
			handlerLogger.WithError(err).Error("Failed to respond to interaction")
		}
		return
	}

	// Ensure may take several REST calls; acknowledge first so the token stays valid.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		handlerLogger.WithError(err).Error("Failed to defer interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	reply := h.subscribe(ctx, handlerLogger, i.GuildID, i.ChannelID)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}); err != nil {
		handlerLogger.WithError(err).Error("Failed to edit interaction response")
	}
}

// subscribe runs the tracker flow for the guild and returns the reply text.
func (h *Handlers) subscribe(ctx context.Context, log *logrus.Entry, guildID, channelID string) string {
	msg, outcome, err := h.tracker.Ensure(ctx, guildID, channelID)
	switch {
	case err == nil:
		log.WithFields(logrus.Fields{
			"message_id": msg.MessageID,
			"outcome":    outcome.String(),
		}).Info("Tracker message ensured")
	case errors.Is(err, app.ErrReactionsIncomplete):
		log.WithError(err).Warn("Tracker message ensured without all reactions")
	default:
		log.WithError(err).Error("Failed to ensure tracker message")
	}
	return subscribeReply(outcome, err)
}

func wrongChannelReply(channelName string) string {
	return fmt.Sprintf("이 명령어는 #%s 채널에서만 사용할 수 있습니다.", channelName)
}

func subscribeReply(outcome app.EnsureOutcome, err error) string {
	if err != nil && !errors.Is(err, app.ErrReactionsIncomplete) {
		return fmt.Sprintf("알림 메시지를 준비하지 못했습니다: %s", err.Error())
	}

	var reply string
	switch outcome {
	case app.OutcomeRefreshed:
		reply = "기존 알림 메시지를 갱신했습니다."
	case app.OutcomeRecreated:
		reply = "이전 알림 메시지가 없어 새로 만들었습니다."
	default:
		reply = "알림 메시지를 만들었습니다. 반응을 눌러 역할을 받으세요."
	}
	if err != nil {
		reply += "\n⚠️ 반응 이모지를 달지 못했습니다. 봇의 반응 추가 권한을 확인해 주세요."
	}
	return reply
}

func (h *Handlers) respond(s *discordgo.Session, i *discordgo.InteractionCreate, command, content string) {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   "/" + command,
		"sender_id": invokerID(i),
	})
	handlerLogger.Info("Command received")

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		handlerLogger.WithError(err).Error("Failed to respond to interaction")
	}
}
