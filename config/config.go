package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Booking   BookingConfig   `yaml:"booking"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	// SQLitePath is the database file for the sqlite driver; ":memory:" works too.
	SQLitePath string `yaml:"sqlite_path"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
	// PublishAttempts is how often a lifecycle event is tried before it is dropped.
	PublishAttempts    int      `yaml:"publish_attempts"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type SchedulerConfig struct {
	IntervalSeconds    int `yaml:"interval_seconds"`
	StopTimeoutSeconds int `yaml:"stop_timeout_seconds"`
}

func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s SchedulerConfig) StopTimeout() time.Duration {
	return time.Duration(s.StopTimeoutSeconds) * time.Second
}

type TasksConfig struct {
	RetentionMinutes     int `yaml:"retention_minutes"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	StopTimeoutSeconds   int `yaml:"stop_timeout_seconds"`
}

func (t TasksConfig) Retention() time.Duration {
	return time.Duration(t.RetentionMinutes) * time.Minute
}

func (t TasksConfig) SweepInterval() time.Duration {
	return time.Duration(t.SweepIntervalSeconds) * time.Second
}

func (t TasksConfig) StopTimeout() time.Duration {
	return time.Duration(t.StopTimeoutSeconds) * time.Second
}

type BookingConfig struct {
	// ProcessingDelayMs simulates slow downstream work before the insert.
	ProcessingDelayMs    int `yaml:"processing_delay_ms"`
	CancelWindowHours    int `yaml:"cancel_window_hours"`
	AdmissionLockSeconds int `yaml:"admission_lock_seconds"`
}

func (b BookingConfig) ProcessingDelay() time.Duration {
	return time.Duration(b.ProcessingDelayMs) * time.Millisecond
}

func (b BookingConfig) CancelWindow() time.Duration {
	return time.Duration(b.CancelWindowHours) * time.Hour
}

func (b BookingConfig) AdmissionLockTTL() time.Duration {
	return time.Duration(b.AdmissionLockSeconds) * time.Second
}

type NotifyConfig struct {
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every zero value with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.HTTP.Address, ":8080")
	setDefault(&c.GRPC.Address, ":9090")
	setDefault(&c.Database.Driver, DriverPostgres)
	setDefault(&c.Database.SSLMode, "disable")
	setDefault(&c.Database.SQLitePath, "skyreserve.db")
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	setDefault(&c.Kafka.BookingEventsTopic, "booking-events")
	setDefault(&c.Kafka.NotificationsTopic, "flight-notifications")
	setDefault(&c.Kafka.GroupID, "skyreserve-worker")
	setDefaultInt(&c.Kafka.PublishAttempts, 3)

	setDefaultInt(&c.Scheduler.IntervalSeconds, 10)
	setDefaultInt(&c.Scheduler.StopTimeoutSeconds, 5)
	setDefaultInt(&c.Tasks.RetentionMinutes, 60)
	setDefaultInt(&c.Tasks.SweepIntervalSeconds, 60)
	setDefaultInt(&c.Tasks.StopTimeoutSeconds, 5)
	setDefaultInt(&c.Booking.CancelWindowHours, 24)
	setDefaultInt(&c.Booking.AdmissionLockSeconds, 30)
	setDefaultInt(&c.Notify.SubscriberBuffer, 32)

	setDefault(&c.Log.Level, "info")
	setDefault(&c.Log.Format, "json")
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Booking.ProcessingDelayMs < 0 {
		return fmt.Errorf("booking.processing_delay_ms must not be negative")
	}
	return nil
}

func setDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setDefaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
