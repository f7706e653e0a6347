package app

import (
	"context"
	"fmt"

	"boss_alert_bot/internal/domain/chat"

	"github.com/sirupsen/logrus"
)

// RoleSyncService keeps the notification role in step with reactions on the
// tracker message.
type RoleSyncService struct {
	messenger chat.Messenger
	tracker   TrackerLookup
	roleName  string
	emojis    map[string]bool
	logger    *logrus.Entry
}

func NewRoleSyncService(messenger chat.Messenger, lookup TrackerLookup, roleName string, emojis []string, logger *logrus.Entry) *RoleSyncService {
	set := make(map[string]bool, len(emojis))
	for _, e := range emojis {
		set[e] = true
	}
	return &RoleSyncService{
		messenger: messenger,
		tracker:   lookup,
		roleName:  roleName,
		emojis:    set,
		logger:    logger,
	}
}

// HandleReactionAdded grants the role, creating it on first use.
func (s *RoleSyncService) HandleReactionAdded(ctx context.Context, ev chat.ReactionEvent) error {
	if !s.accepts(ctx, ev) {
		return nil
	}
	log := s.eventLogger(ev)

	roleID, err := s.ensureRole(ctx, ev.GuildID)
	if err != nil {
		return err
	}
	held, err := s.holds(ctx, ev.GuildID, ev.UserID, roleID)
	if err != nil {
		return err
	}
	if held {
		log.Debug("Member already has the role")
		return nil
	}
	if err := s.messenger.GrantRole(ctx, ev.GuildID, ev.UserID, roleID); err != nil {
		return fmt.Errorf("grant role to %s: %w", ev.UserID, err)
	}
	log.Info("Subscribed member to boss alerts")
	return nil
}

// HandleReactionRemoved revokes the role if the member holds it.
func (s *RoleSyncService) HandleReactionRemoved(ctx context.Context, ev chat.ReactionEvent) error {
	if !s.accepts(ctx, ev) {
		return nil
	}
	log := s.eventLogger(ev)

	roleID, ok, err := s.findRole(ctx, ev.GuildID)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug("Role does not exist, nothing to revoke")
		return nil
	}
	held, err := s.holds(ctx, ev.GuildID, ev.UserID, roleID)
	if err != nil {
		return err
	}
	if !held {
		return nil
	}
	if err := s.messenger.RevokeRole(ctx, ev.GuildID, ev.UserID, roleID); err != nil {
		return fmt.Errorf("revoke role from %s: %w", ev.UserID, err)
	}
	log.Info("Unsubscribed member from boss alerts")
	return nil
}

func (s *RoleSyncService) eventLogger(ev chat.ReactionEvent) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"guild_id": ev.GuildID,
		"user_id":  ev.UserID,
	})
}

// accepts filters out reactions that have nothing to do with the guild's tracker message.
func (s *RoleSyncService) accepts(ctx context.Context, ev chat.ReactionEvent) bool {
	if !s.emojis[ev.Emoji] || ev.UserID == "" || ev.UserID == s.messenger.SelfID() {
		return false
	}
	current, err := s.tracker.Current(ctx, ev.GuildID)
	if err != nil {
		s.eventLogger(ev).WithError(err).Warn("Tracker message unknown, ignoring reaction")
		return false
	}
	return current != nil && current.MessageID == ev.MessageID
}

func (s *RoleSyncService) findRole(ctx context.Context, guildID string) (string, bool, error) {
	roles, err := s.messenger.ListRoles(ctx, guildID)
	if err != nil {
		return "", false, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles {
		if r.Name == s.roleName {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

// ensureRole looks the role up by name and creates it if missing. A failed
// create is followed by one more lookup in case another handler won the race.
func (s *RoleSyncService) ensureRole(ctx context.Context, guildID string) (string, error) {
	id, ok, err := s.findRole(ctx, guildID)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}

	id, createErr := s.messenger.CreateRole(ctx, guildID, s.roleName)
	if createErr == nil {
		s.logger.WithField("guild_id", guildID).Info("Created notification role")
		return id, nil
	}

	id, ok, err = s.findRole(ctx, guildID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("create role %q: %w", s.roleName, createErr)
	}
	return id, nil
}

func (s *RoleSyncService) holds(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	roles, err := s.messenger.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("member roles for %s: %w", userID, err)
	}
	for _, r := range roles {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}
