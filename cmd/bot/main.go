package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"boss_alert_bot/internal/app"
	"boss_alert_bot/internal/domain/boss"
	"boss_alert_bot/internal/infra/config"
	"boss_alert_bot/internal/infra/discord"
	"boss_alert_bot/internal/infra/logger"
	"boss_alert_bot/internal/infra/scheduler"
	"boss_alert_bot/internal/infra/telegram"
	"boss_alert_bot/internal/infra/web"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Boss Alert Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"timezone":      cfg.Location.String(),
		"tracker_store": cfg.TrackerStore,
	}).Info("Configuration loaded")

	// Schedule table is validated before anything starts.
	defs, err := config.LoadSchedule(cfg.BossScheduleFile)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load boss schedule")
	}
	schedule, err := boss.NewSchedule(defs, cfg.Location)
	if err != nil {
		mainLogger.WithError(err).Fatal("Invalid boss schedule")
	}
	mainLogger.WithField("bosses", len(schedule.Bosses())).Info("Boss schedule loaded")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := initTrackerStore(startCtx, cfg, mainLogger)
	cancelStart()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize tracker store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			mainLogger.WithError(err).Warn("Failed to close tracker store")
		}
	}()

	// Initialize Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Discord session")
	}
	session.Identify.Intents = discord.Intents
	messenger := discord.NewAdapter(session, cfg.SendRatePerSec, cfg.SendBurst)

	// Initialize services
	expiry := app.NewExpiryRegistry(logger.Component("expiry"))
	alertService := app.NewAlertService(schedule, messenger, expiry, app.AlertServiceConfig{
		ChannelName: cfg.AlertChannelName,
		RoleName:    cfg.AlertRoleName,
		TTL:         cfg.AlertTTL,
	}, logger.Component("alerts"))

	if cfg.TelegramToken != "" && cfg.TelegramMirrorChatID != 0 {
		bot, err := telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		alertService.WithMirror(telegram.NewTelebotAdapter(bot), strconv.FormatInt(cfg.TelegramMirrorChatID, 10))
		mainLogger.WithField("chat_id", cfg.TelegramMirrorChatID).Info("Telegram mirror enabled")
	}

	trackerService := app.NewTrackerService(store, messenger, schedule, cfg.TriggerEmojis,
		cfg.AlertChannelName, logger.Component("tracker"))
	roleSync := app.NewRoleSyncService(messenger, trackerService, cfg.AlertRoleName, cfg.TriggerEmojis,
		logger.Component("rolesync"))

	// Register Handlers
	handlers := discord.NewHandlers(roleSync, trackerService, cfg.AlertChannelName, logger.Component("discord"))
	handlers.Register(session)

	if err := session.Open(); err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to Discord")
	}
	if err := discord.RegisterCommands(session, cfg.CommandGuildID); err != nil {
		mainLogger.WithError(err).Error("Slash commands are unavailable")
	}

	alertScheduler := scheduler.NewAlertScheduler(alertService, trackerService, logger.Component("scheduler"), cfg.Location,
		cfg.AlertTickInterval, cfg.TrackerRefreshInterval)
	if err := alertScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start alert scheduler")
	}

	webServer := web.NewServer(cfg.Port, trackerService, expiry, logger.Component("web"))
	webServer.Start()

	mainLogger.Info("Application setup complete. Bot and scheduler are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	mainLogger.WithField("signal", sig.String()).Info("Shutting down application...")
	alertScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	flushed := expiry.Flush(ctx)
	mainLogger.WithField("deleted", flushed).Info("Flushed pending alert deletions")

	if err := webServer.Shutdown(ctx); err != nil {
		mainLogger.WithError(err).Warn("Liveness server did not shut down cleanly")
	}
	if err := session.Close(); err != nil {
		mainLogger.WithError(err).Warn("Discord session did not close cleanly")
	}
	mainLogger.Info("Application shut down gracefully.")
}
