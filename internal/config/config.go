package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	Storage     string `envconfig:"STORAGE" default:"postgres"`
	DBDSN       string `envconfig:"DB_DSN"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	LeadTimeMinutes int `envconfig:"LEAD_TIME_MINUTES" default:"15"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SlotCacheTTL  time.Duration `envconfig:"SLOT_CACHE_TTL" default:"30s"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`

	TelegramToken        string `envconfig:"TELEGRAM_TOKEN"`
	TelegramNotifyChatID int64  `envconfig:"TELEGRAM_NOTIFY_CHAT_ID"`

	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"5m"`
	ReminderLead     time.Duration `envconfig:"REMINDER_LEAD" default:"24h"`

	RateLimitRPS   float64  `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`

	LogFile string `envconfig:"LOG_FILE"`

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool `ignored:"true"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	loaded := true
	if err := godotenv.Load(".env"); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		loaded = false
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.EnvFileLoaded = loaded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Storage = strings.ToLower(c.Storage)
	switch c.Storage {
	case StoragePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}

	if c.LeadTimeMinutes < 0 {
		return fmt.Errorf("LEAD_TIME_MINUTES must not be negative")
	}
	if c.TelegramToken != "" && c.TelegramNotifyChatID == 0 {
		return fmt.Errorf("TELEGRAM_NOTIFY_CHAT_ID is required with TELEGRAM_TOKEN")
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) LeadTime() time.Duration {
	return time.Duration(c.LeadTimeMinutes) * time.Minute
}
