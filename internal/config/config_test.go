package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.LeadTime())
	assert.Equal(t, 30*time.Second, cfg.SlotCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.ReminderLead)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE", "Postgres")
	t.Setenv("DB_DSN", "postgres://localhost/coach")
	t.Setenv("LEAD_TIME_MINUTES", "30")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_NOTIFY_CHAT_ID", "-100500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 30*time.Minute, cfg.LeadTime())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, int64(-100500), cfg.TelegramNotifyChatID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"postgres without dsn", Config{Storage: StoragePostgres, ReminderInterval: time.Minute}},
		{"unknown storage", Config{Storage: "sqlite", ReminderInterval: time.Minute}},
		{"negative lead", Config{Storage: StorageMemory, LeadTimeMinutes: -1, ReminderInterval: time.Minute}},
		{"telegram without chat", Config{Storage: StorageMemory, TelegramToken: "t", ReminderInterval: time.Minute}},
		{"zero reminder interval", Config{Storage: StorageMemory}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
