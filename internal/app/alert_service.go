// internal/app/alert_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"boss_alert_bot/internal/domain/boss"
	"boss_alert_bot/internal/domain/chat"

	"github.com/sirupsen/logrus"
)

// AlertDispatcher is driven by the scheduler on a fixed tick.
type AlertDispatcher interface {
	Tick(ctx context.Context) error
}

type AlertServiceConfig struct {
	ChannelName string
	RoleName    string
	// TTL is how long an alert stays visible before it is deleted.
	TTL time.Duration
}

// AlertService sends one alert per boss occurrence to every configured guild
// and hands the sent messages to an ExpiryRegistry.
type AlertService struct {
	schedule  *boss.Schedule
	messenger chat.Messenger
	expiry    *ExpiryRegistry
	cfg       AlertServiceConfig
	logger    *logrus.Entry
	now       func() time.Time

	mirror       chat.Publisher
	mirrorChatID string

	mu      sync.Mutex
	alerted map[string]time.Time // occurrence key -> occurrence time
}

var _ AlertDispatcher = (*AlertService)(nil)

func NewAlertService(
	schedule *boss.Schedule,
	messenger chat.Messenger,
	expiry *ExpiryRegistry,
	cfg AlertServiceConfig,
	logger *logrus.Entry,
) *AlertService {
	return &AlertService{
		schedule:  schedule,
		messenger: messenger,
		expiry:    expiry,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		alerted:   make(map[string]time.Time),
	}
}

// WithMirror also publishes every alert to chatID through p.
func (s *AlertService) WithMirror(p chat.Publisher, chatID string) *AlertService {
	s.mirror = p
	s.mirrorChatID = chatID
	return s
}

// Tick checks whether a boss spawns in the next minute and alerts for it once.
func (s *AlertService) Tick(ctx context.Context) error {
	now := s.now()
	s.forgetPast(now)

	occ, ok := s.schedule.AlertTarget(now)
	if !ok {
		return nil
	}

	log := s.logger.WithFields(logrus.Fields{
		"boss":  occ.Boss.Name,
		"spawn": occ.At.Format(time.RFC3339),
	})
	if !s.claim(occ) {
		log.Debug("Occurrence already alerted, skipping")
		return nil
	}

	targets, err := s.messenger.AlertTargets(ctx, s.cfg.ChannelName, s.cfg.RoleName)
	if err != nil {
		// Nothing was sent, so let the next tick try again.
		s.release(occ)
		log.WithError(err).Error("Failed to resolve alert targets")
		return fmt.Errorf("resolve alert targets: %w", err)
	}
	if len(targets) == 0 {
		log.Warn("No guild has both the alert channel and role configured")
	}

	var errs []error
	sent := 0
	for _, t := range targets {
		msgID, err := s.messenger.SendMessage(ctx, t.ChannelID, FormatAlert(t.RoleMention, occ))
		if err != nil {
			log.WithError(err).WithField("guild_id", t.GuildID).Error("Failed to send boss alert")
			errs = append(errs, fmt.Errorf("guild %s: %w", t.GuildID, err))
			continue
		}
		s.expiry.Schedule(s.messenger, t.ChannelID, msgID, s.cfg.TTL)
		sent++
	}

	if s.mirror != nil && s.mirrorChatID != "" {
		msgID, err := s.mirror.SendMessage(ctx, s.mirrorChatID, FormatAlert("", occ))
		if err != nil {
			log.WithError(err).Error("Failed to mirror boss alert")
			errs = append(errs, fmt.Errorf("mirror: %w", err))
		} else {
			s.expiry.Schedule(s.mirror, s.mirrorChatID, msgID, s.cfg.TTL)
		}
	}

	log.WithField("guilds", sent).Info("Boss alert sent")
	return errors.Join(errs...)
}

func (s *AlertService) claim(occ boss.Occurrence) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := occ.Key()
	if _, done := s.alerted[key]; done {
		return false
	}
	s.alerted[key] = occ.At
	return true
}

func (s *AlertService) release(occ boss.Occurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alerted, occ.Key())
}

// forgetPast drops dedupe keys whose spawn time has passed.
func (s *AlertService) forgetPast(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, at := range s.alerted {
		if now.After(at) {
			delete(s.alerted, key)
		}
	}
}

// tracked reports the number of remembered dedupe keys.
func (s *AlertService) tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerted)
}
