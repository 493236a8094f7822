package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "database:\n  driver: sqlite\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.Interval())
	assert.Equal(t, 5*time.Second, cfg.Scheduler.StopTimeout())
	assert.Equal(t, time.Hour, cfg.Tasks.Retention())
	assert.Equal(t, time.Minute, cfg.Tasks.SweepInterval())
	assert.Equal(t, 24*time.Hour, cfg.Booking.CancelWindow())
	assert.Equal(t, 30*time.Second, cfg.Booking.AdmissionLockTTL())
	assert.Zero(t, cfg.Booking.ProcessingDelay())
	assert.Equal(t, 32, cfg.Notify.SubscriberBuffer)
	assert.Equal(t, 3, cfg.Kafka.PublishAttempts)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
http:
  address: ":9000"
database:
  host: db
  port: 6543
  user: sky
  password: secret
  name: skyreserve
kafka:
  brokers: ["kafka:9092"]
scheduler:
  interval_seconds: 2
booking:
  processing_delay_ms: 5000
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=db port=6543 user=sky password=secret dbname=skyreserve sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 2*time.Second, cfg.Scheduler.Interval())
	assert.Equal(t, 5*time.Second, cfg.Booking.ProcessingDelay())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = LoadConfig(writeConfig(t, "http: ["))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = LoadConfig(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "flight_id", 3)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "flight_id=3")
}
