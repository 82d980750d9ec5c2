package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BASE_URL", "")
	t.Setenv("MAIL_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://localhost:8080/", cfg.BaseURL)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "local", cfg.BlobBackend)
	assert.Equal(t, 10*time.Second, cfg.MailTimeout)
	assert.Equal(t, int64(16*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 5*time.Minute, cfg.SettingsCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BASE_URL", "https://letters.example.com")
	t.Setenv("MAIL_TIMEOUT", "3s")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("RESET_DB", "true")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "s3cret")

	cfg := Load()

	assert.Equal(t, "https://letters.example.com/", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.MailTimeout)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.ResetDB)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "root", cfg.AdminUsername)
	assert.Equal(t, "s3cret", cfg.AdminPassword)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	t.Setenv("MAIL_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10*time.Second, cfg.MailTimeout)
}
