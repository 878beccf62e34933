package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/deadline.db"`

	YonoteAPIKey     string `envconfig:"YONOTE_API_KEY"`
	YonoteDatabaseID string `envconfig:"YONOTE_CALENDAR_ID"`
	YonoteBaseURL    string `envconfig:"YONOTE_BASE_URL" default:"https://app.yonote.ru"`

	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"30m"`
	NotifyInterval time.Duration `envconfig:"NOTIFY_INTERVAL" default:"5m"`

	DefaultTZ string  `envconfig:"DEFAULT_TZ" default:"Europe/Moscow"` // display/settings timezone
	AdminIDs  []int64 `envconfig:"ADMIN_IDS"`                          // comma-separated Telegram ids
	LogLevel  string  `envconfig:"LOG_LEVEL" default:"info"`           // debug|info|warn|error
	HTTPAddr  string  `envconfig:"HTTP_ADDR" default:":8080"`          // healthz
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IsAdmin reports whether a Telegram id is in the admin list.
func (c Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
