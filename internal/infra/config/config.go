package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreJSONBin  = "jsonbin"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

const (
	maxTickInterval = 60 * time.Second
	minAlertTTL     = 60 * time.Second
	maxAlertTTL     = 120 * time.Second
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DiscordToken   string
	CommandGuildID string // empty registers slash commands globally
	LogLevel       string
	Environment    string
	Location       *time.Location

	AlertChannelName string
	AlertRoleName    string
	TriggerEmojis    []string
	BossScheduleFile string

	AlertTickInterval      time.Duration
	AlertTTL               time.Duration
	TrackerRefreshInterval time.Duration // 0 disables board refresh

	SendRatePerSec float64
	SendBurst      int

	TrackerStore   string
	JSONBinAPIKey  string
	JSONBinBinID   string
	JSONBinBaseURL string
	DatabaseURL    string
	RedisAddr      string
	RedisUsername  string
	RedisPassword  string
	RedisKey       string

	Port string

	TelegramToken        string
	TelegramMirrorChatID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	if cfg.DiscordToken == "" {
		cfg.DiscordToken = os.Getenv("TOKEN")
	}
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}
	cfg.CommandGuildID = os.Getenv("COMMAND_GUILD_ID")

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	tz := getEnv("TIMEZONE", "Asia/Seoul")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg.AlertChannelName = getEnv("ALERT_CHANNEL_NAME", "보스알림")
	cfg.AlertRoleName = getEnv("ALERT_ROLE_NAME", "보스알림")
	cfg.TriggerEmojis = splitList(getEnv("TRIGGER_EMOJIS", "🔔"))
	if len(cfg.TriggerEmojis) == 0 {
		return nil, fmt.Errorf("TRIGGER_EMOJIS must name at least one emoji")
	}
	cfg.BossScheduleFile = os.Getenv("BOSS_SCHEDULE_FILE")

	if cfg.AlertTickInterval, err = getDuration("ALERT_TICK_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.AlertTickInterval <= 0 || cfg.AlertTickInterval > maxTickInterval {
		return nil, fmt.Errorf("ALERT_TICK_INTERVAL must be in (0, %s], got %s", maxTickInterval, cfg.AlertTickInterval)
	}
	if cfg.AlertTTL, err = getDuration("ALERT_TTL", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.AlertTTL < minAlertTTL || cfg.AlertTTL > maxAlertTTL {
		return nil, fmt.Errorf("ALERT_TTL must be between %s and %s, got %s", minAlertTTL, maxAlertTTL, cfg.AlertTTL)
	}
	if cfg.AlertTTL <= cfg.AlertTickInterval {
		return nil, fmt.Errorf("ALERT_TTL (%s) must exceed ALERT_TICK_INTERVAL (%s)", cfg.AlertTTL, cfg.AlertTickInterval)
	}
	if cfg.TrackerRefreshInterval, err = getDuration("TRACKER_REFRESH_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	if cfg.SendRatePerSec, err = strconv.ParseFloat(getEnv("SEND_RATE_PER_SEC", "5"), 64); err != nil || cfg.SendRatePerSec <= 0 {
		return nil, fmt.Errorf("invalid SEND_RATE_PER_SEC %q", os.Getenv("SEND_RATE_PER_SEC"))
	}
	if cfg.SendBurst, err = strconv.Atoi(getEnv("SEND_BURST", "5")); err != nil || cfg.SendBurst < 1 {
		return nil, fmt.Errorf("invalid SEND_BURST %q", os.Getenv("SEND_BURST"))
	}

	if err := cfg.loadStore(); err != nil {
		return nil, err
	}

	cfg.Port = getEnv("PORT", "3000")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if chatID := os.Getenv("TELEGRAM_MIRROR_CHAT_ID"); chatID != "" {
		if cfg.TelegramMirrorChatID, err = strconv.ParseInt(chatID, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_MIRROR_CHAT_ID: %w", err)
		}
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_MIRROR_CHAT_ID is set but TELEGRAM_TOKEN is not")
		}
	}

	return cfg, nil
}

func (cfg *AppConfig) loadStore() error {
	cfg.TrackerStore = strings.ToLower(getEnv("TRACKER_STORE", StoreJSONBin))

	switch cfg.TrackerStore {
	case StoreJSONBin:
		cfg.JSONBinAPIKey = os.Getenv("JSONBIN_API_KEY")
		cfg.JSONBinBinID = os.Getenv("JSONBIN_BIN_ID")
		cfg.JSONBinBaseURL = getEnv("JSONBIN_BASE_URL", "https://api.jsonbin.io/v3")
		if cfg.JSONBinAPIKey == "" || cfg.JSONBinBinID == "" {
			return fmt.Errorf("JSONBIN_API_KEY and JSONBIN_BIN_ID are required for the jsonbin store")
		}
	case StorePostgres, StoreSQLite:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", cfg.TrackerStore)
		}
	case StoreRedis:
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis store")
		}
		cfg.RedisUsername = os.Getenv("REDIS_USERNAME")
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
		cfg.RedisKey = getEnv("REDIS_KEY", "boss_alert:tracker")
	default:
		return fmt.Errorf("unknown TRACKER_STORE %q", cfg.TrackerStore)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
