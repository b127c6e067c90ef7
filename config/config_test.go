package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())

	require.NoError(t, err)
	assert.Equal(t, "event-ticketing", cfg.App.Name)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, TransportLocal, cfg.Notifier.Transport)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=event_ticketing sslmode=disable", cfg.Database.DSN())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("NOTIFIER_TRANSPORT", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_LOCK_TIMEOUT", "750ms")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := load(viper.New())

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorageDriverMemory, cfg.Database.Driver)
	assert.Equal(t, TransportRedis, cfg.Notifier.Transport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.LockTimeout)
	assert.True(t, cfg.OTel.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":    {"STORAGE_DRIVER": "sqlite"},
		"unknown transport": {"NOTIFIER_TRANSPORT": "websocket"},
		"bad db port":       {"DB_PORT": "70000"},
		"default secret in production": {
			"APP_ENV": "production",
		},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
