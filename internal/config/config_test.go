package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file::memory:")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "sb-access-token", cfg.Auth.SessionCookie)
	assert.Equal(t, "selected_chapter", cfg.Auth.ChapterCookie)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 120, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 600*time.Millisecond, cfg.Email.SendDelay)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RATELIMIT_BACKEND", "redis")
	t.Setenv("RATELIMIT_REQUESTS", "30")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("STORAGE_PRESIGN_TTL", "5m")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Storage.PresignTTL)
}

func TestLoadFlagsAndFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "chapterhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email:\n  from: news@example.org\n"), 0o600))

	flags := Flags()
	require.NoError(t, flags.Parse([]string{"--addr", ":9090", "--config", path}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "news@example.org", cfg.Email.From)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"AUTH_JWT_SECRET": ""}},
		{name: "unknown driver", env: map[string]string{"DATABASE_DRIVER": "oracle"}},
		{name: "missing dsn", env: map[string]string{"DATABASE_DSN": ""}},
		{name: "unknown limiter", env: map[string]string{"RATELIMIT_BACKEND": "memcached"}},
		{name: "zero window", env: map[string]string{"RATELIMIT_WINDOW": "0s"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}
