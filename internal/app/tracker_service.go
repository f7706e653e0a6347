package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"boss_alert_bot/internal/domain/boss"
	"boss_alert_bot/internal/domain/chat"
	"boss_alert_bot/internal/domain/tracker"

	"github.com/sirupsen/logrus"
)

// ErrReactionsIncomplete means the tracker message exists and is stored but
// some trigger reactions could not be attached to it.
var ErrReactionsIncomplete = errors.New("tracker message is ready but reactions are missing")

// EnsureOutcome tells the command caller what Ensure did.
type EnsureOutcome int

const (
	OutcomeCreated EnsureOutcome = iota + 1
	OutcomeRecreated
	OutcomeRefreshed
)

func (o EnsureOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRecreated:
		return "recreated"
	case OutcomeRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// TrackerLookup resolves a guild's canonical subscribe message.
type TrackerLookup interface {
	Current(ctx context.Context, guildID string) (*tracker.Message, error)
}

// TrackerBoard is refreshed periodically by the scheduler.
type TrackerBoard interface {
	Refresh(ctx context.Context) error
}

// TrackerService owns the per-guild subscribe messages: creating them,
// recovering them when deleted out of band, and keeping their board text current.
type TrackerService struct {
	store     tracker.Store
	messenger chat.Messenger
	schedule  *boss.Schedule
	emojis    []string
	// channelName selects the guilds that get a tracker.
	channelName string
	logger      *logrus.Entry
	now         func() time.Time

	mu     sync.Mutex
	cached map[string]tracker.Message // guild id -> message
}

var (
	_ TrackerLookup = (*TrackerService)(nil)
	_ TrackerBoard  = (*TrackerService)(nil)
)

func NewTrackerService(
	store tracker.Store,
	messenger chat.Messenger,
	schedule *boss.Schedule,
	emojis []string,
	channelName string,
	logger *logrus.Entry,
) *TrackerService {
	return &TrackerService{
		store:       store,
		messenger:   messenger,
		schedule:    schedule,
		emojis:      emojis,
		channelName: channelName,
		logger:      logger,
		now:         time.Now,
		cached:      make(map[string]tracker.Message),
	}
}

// Current returns the guild's stored tracker message, nil if none exists yet.
// A successful read is cached; Ensure keeps the cache in step with the store.
func (s *TrackerService) Current(ctx context.Context, guildID string) (*tracker.Message, error) {
	s.mu.Lock()
	if msg, ok := s.cached[guildID]; ok {
		s.mu.Unlock()
		return &msg, nil
	}
	s.mu.Unlock()

	msg, err := s.store.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("read tracker message for guild %s: %w", guildID, err)
	}
	if msg == nil || msg.MessageID == "" {
		return nil, nil
	}
	msg.GuildID = guildID
	s.remember(*msg)
	return msg, nil
}

func (s *TrackerService) remember(msg tracker.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached[msg.GuildID] = msg
}

func (s *TrackerService) forget(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cached, guildID)
}

// Ensure makes sure the guild has a live tracker message. An existing message
// is edited in place; a missing one is replaced in channelID and the new id persisted.
// ErrReactionsIncomplete is returned alongside a usable message.
func (s *TrackerService) Ensure(ctx context.Context, guildID, channelID string) (*tracker.Message, EnsureOutcome, error) {
	stored, err := s.store.Get(ctx, guildID)
	if err != nil {
		return nil, 0, fmt.Errorf("read tracker message: %w", err)
	}

	content := s.boardText()
	outcome := OutcomeCreated
	log := s.logger.WithField("guild_id", guildID)

	if stored != nil && stored.MessageID != "" {
		existing := tracker.Message{GuildID: guildID, ChannelID: stored.ChannelID, MessageID: stored.MessageID}
		if existing.ChannelID == "" {
			existing.ChannelID = channelID
		}

		_, err := s.messenger.FetchMessage(ctx, existing.ChannelID, existing.MessageID)
		if err == nil {
			err = s.messenger.EditMessage(ctx, existing.ChannelID, existing.MessageID, content)
		}
		switch {
		case err == nil:
			s.remember(existing)
			log.WithField("message_id", existing.MessageID).Info("Tracker message refreshed in place")
			return &existing, OutcomeRefreshed, s.react(ctx, existing)
		case errors.Is(err, chat.ErrNotFound):
			log.WithField("message_id", existing.MessageID).Warn("Stored tracker message is gone, creating a replacement")
			outcome = OutcomeRecreated
		default:
			return nil, 0, fmt.Errorf("resolve tracker message %s: %w", existing.MessageID, err)
		}
	}

	msgID, err := s.messenger.SendMessage(ctx, channelID, content)
	if err != nil {
		return nil, 0, fmt.Errorf("send tracker message: %w", err)
	}
	created := tracker.Message{GuildID: guildID, ChannelID: channelID, MessageID: msgID}

	if err := s.store.Set(ctx, created); err != nil {
		s.forget(guildID)
		return &created, outcome, fmt.Errorf("persist tracker message %s: %w", msgID, err)
	}
	s.remember(created)
	log.WithFields(logrus.Fields{
		"message_id": msgID,
		"channel_id": channelID,
		"outcome":    outcome.String(),
	}).Info("Tracker message stored")

	return &created, outcome, s.react(ctx, created)
}

func (s *TrackerService) react(ctx context.Context, msg tracker.Message) error {
	var errs []error
	for _, emoji := range s.emojis {
		if err := s.messenger.AddReaction(ctx, msg.ChannelID, msg.MessageID, emoji); err != nil {
			errs = append(errs, fmt.Errorf("add reaction %s: %w", emoji, err))
		}
	}
	if len(errs) > 0 {
		s.logger.WithError(errors.Join(errs...)).WithField("message_id", msg.MessageID).Warn("Tracker message is missing reactions")
		return fmt.Errorf("%w: %w", ErrReactionsIncomplete, errors.Join(errs...))
	}
	return nil
}

func (s *TrackerService) boardText() string {
	now := s.now()
	return FormatTrackerBoard(s.schedule.Upcoming(now), now.In(s.schedule.Location()), s.emojis)
}

// Upcoming returns the display lookahead as of now.
func (s *TrackerService) Upcoming() ([]boss.Occurrence, time.Time) {
	now := s.now().In(s.schedule.Location())
	return s.schedule.Upcoming(now), now
}

// Now is the current time in the schedule's location.
func (s *TrackerService) Now() time.Time {
	return s.now().In(s.schedule.Location())
}

// Refresh rewrites every guild's tracker message with the upcoming spawns.
// A missing message is only logged; recovery is left to the subscribe command.
func (s *TrackerService) Refresh(ctx context.Context) error {
	targets, err := s.messenger.AlertChannels(ctx, s.channelName)
	if err != nil {
		return fmt.Errorf("resolve alert channels: %w", err)
	}

	content := s.boardText()
	var errs []error
	for _, t := range targets {
		msg, err := s.Current(ctx, t.GuildID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if msg == nil {
			continue
		}
		channelID := msg.ChannelID
		if channelID == "" {
			channelID = t.ChannelID
		}

		err = s.messenger.EditMessage(ctx, channelID, msg.MessageID, content)
		if errors.Is(err, chat.ErrNotFound) {
			s.logger.WithFields(logrus.Fields{
				"guild_id":   t.GuildID,
				"message_id": msg.MessageID,
			}).Warn("Tracker message missing, run the subscribe command to recreate it")
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("edit tracker message in guild %s: %w", t.GuildID, err))
			continue
		}
		if msg.ChannelID == "" {
			msg.ChannelID = channelID
			s.remember(*msg)
		}
	}
	return errors.Join(errs...)
}
