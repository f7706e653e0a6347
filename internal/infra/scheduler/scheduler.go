package scheduler

import (
	"context"
	"fmt"
	"time"

	"boss_alert_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AlertScheduler drives the alert tick and the tracker board refresh.
type AlertScheduler struct {
	cronEngine      *cron.Cron
	dispatcher      app.AlertDispatcher
	board           app.TrackerBoard
	logger          *logrus.Entry
	tickInterval    time.Duration
	refreshInterval time.Duration
	jobTimeout      time.Duration
}

func NewAlertScheduler(
	dispatcher app.AlertDispatcher,
	board app.TrackerBoard,
	logger *logrus.Entry,
	loc *time.Location,
	tickInterval time.Duration, // e.g. 30s, must not exceed a minute
	refreshInterval time.Duration, // 0 disables the board refresh
) *AlertScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &AlertScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		dispatcher:      dispatcher,
		board:           board,
		logger:          logger,
		tickInterval:    tickInterval,
		refreshInterval: refreshInterval,
		jobTimeout:      tickInterval,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *AlertScheduler) Start() error {
	s.logger.Info("Starting alert scheduler...")

	_, err := s.cronEngine.AddFunc(every(s.tickInterval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		if err := s.dispatcher.Tick(ctx); err != nil {
			s.logger.WithError(err).Error("Alert tick finished with errors")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add alert tick job: %w", err)
	}

	if s.board != nil && s.refreshInterval > 0 {
		_, err = s.cronEngine.AddFunc(every(s.refreshInterval), func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.refreshInterval)
			defer cancel()
			if err := s.board.Refresh(ctx); err != nil {
				s.logger.WithError(err).Warn("Tracker board refresh failed")
			}
		})
		if err != nil {
			return fmt.Errorf("could not add tracker refresh job: %w", err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"tick":    s.tickInterval.String(),
		"refresh": s.refreshInterval.String(),
	}).Info("Alert scheduler started with jobs.")
	return nil
}

func (s *AlertScheduler) Stop() {
	s.logger.Info("Stopping alert scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Alert scheduler gracefully stopped.")
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
