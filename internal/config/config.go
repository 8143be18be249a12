// Package config defines the process configuration for the CounselDesk
// scheduling service. Configuration is loaded once at startup and is immutable
// thereafter. It follows 12-Factor principles: values come from the OS
// environment, optionally seeded from a .env file in local development.
//
// Any missing required value or invalid format fails the process immediately
// on startup (fail fast).
package config

import (
	"time"

	"counseldesk/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"counseldesk-scheduler"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Push      PushConfig
	Retention RetentionConfig
}

// ServerConfig holds the operational HTTP listener settings. This listener
// serves health probes only; the application API lives in a separate service.
type ServerConfig struct {
	OpsPort string `envconfig:"OPS_PORT" default:"8081"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// SchedulerConfig tunes the polling worker pool.
//
// PollInterval is a deliberate latency/throughput trade-off: a trigger may
// fire up to one interval late, which is acceptable for hearing reminders.
type SchedulerConfig struct {
	PollInterval time.Duration `envconfig:"SCHED_POLL_INTERVAL" default:"30s" validate:"min=1s"`
	Concurrency  int           `envconfig:"SCHED_CONCURRENCY" default:"20" validate:"min=1,max=200"`
	LeaseTTL     time.Duration `envconfig:"SCHED_LEASE_TTL" default:"5m" validate:"min=30s"`

	// WorkerID identifies this process in job leases. Defaults to the
	// hostname plus a random suffix when empty.
	WorkerID string `envconfig:"SCHED_WORKER_ID"`
}

// PushConfig holds the live push channel (Redis pub/sub) settings.
// EventsChannel is the inbound channel the practice-management core publishes
// hearing lifecycle events on.
type PushConfig struct {
	RedisURL      SecretString `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	ChannelPrefix string       `envconfig:"PUSH_CHANNEL_PREFIX" default:"user:"`
	EventsChannel string       `envconfig:"HEARING_EVENTS_CHANNEL" default:"hearings:events"`
}

// RetentionConfig tunes the periodic cleanup of finished jobs and old read
// notifications.
type RetentionConfig struct {
	Enabled bool          `envconfig:"RETENTION_ENABLED" default:"true"`
	Cadence time.Duration `envconfig:"RETENTION_CADENCE" default:"24h"`

	JobTTL          time.Duration `envconfig:"RETENTION_JOB_TTL" default:"720h"`
	NotificationTTL time.Duration `envconfig:"RETENTION_NOTIFICATION_TTL" default:"2160h"`

	// ArchiveDir receives gzip JSON-lines dumps of purged notifications.
	// Empty disables archiving (purge only).
	ArchiveDir string `envconfig:"RETENTION_ARCHIVE_DIR"`
}
