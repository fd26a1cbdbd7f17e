// Package lockconfig loads condlockd configuration from file,
// environment, and defaults: Viper for sourcing, mapstructure decode hooks
// for human-readable durations, go-playground/validator for struct-tag
// validation.
package lockconfig

import "time"

// Config is the top-level configuration for a condlockd instance.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CONDLOCK_*), for keys present in the file
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Table       TableConfig       `mapstructure:"table" yaml:"table"`
	Backend     BackendConfig     `mapstructure:"backend" yaml:"backend"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator" yaml:"coordinator"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string          `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool            `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig `mapstructure:"profiling" yaml:"profiling,omitempty"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ServerConfig controls the condlockd HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`

	// JWTSigningKey verifies bearer tokens on every /v1/locks endpoint.
	// Empty disables authentication (development only).
	JWTSigningKey string `mapstructure:"jwt_signing_key" yaml:"jwt_signing_key,omitempty"`
}

// TableConfig mirrors pkg/lockstore.TableDescriptor for configuration
// purposes.
type TableConfig struct {
	TableName    string `mapstructure:"table_name" yaml:"table_name"`
	PartitionKey string `mapstructure:"partition_key" yaml:"partition_key"`
	SortKey      string `mapstructure:"sort_key" yaml:"sort_key"`
	TTLKey       string `mapstructure:"ttl_key" yaml:"ttl_key,omitempty"`
	TTLInMs      int64  `mapstructure:"ttl_ms" yaml:"ttl_ms,omitempty"`
}

// BackendConfig selects and configures the lockstore.Backend implementation.
type BackendConfig struct {
	// Type selects the backend: "memory", "dynamodb", "sql", or "badger".
	Type string `mapstructure:"type" validate:"required,oneof=memory dynamodb sql badger" yaml:"type"`

	DynamoDB DynamoDBConfig `mapstructure:"dynamodb" yaml:"dynamodb,omitempty"`
	SQL      SQLConfig      `mapstructure:"sql" yaml:"sql,omitempty"`
	Badger   BadgerConfig   `mapstructure:"badger" yaml:"badger,omitempty"`
}

// DynamoDBConfig configures the DynamoDB backend.
type DynamoDBConfig struct {
	// Endpoint overrides the default AWS endpoint resolution, for
	// DynamoDB Local or any DynamoDB-compatible endpoint.
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// SQLConfig configures the relational backend. DatabaseType mirrors
// pkg/lockstore/sql.DatabaseType as a string so it can be decoded from
// YAML/env without importing GORM's dialector packages into this package.
type SQLConfig struct {
	Type     string         `mapstructure:"type" validate:"omitempty,oneof=sqlite postgres" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// SQLiteConfig configures the SQLite dialect.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// PostgresConfig configures the PostgreSQL dialect.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host,omitempty"`
	Port         int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`
	Database     string `mapstructure:"database" yaml:"database,omitempty"`
	User         string `mapstructure:"user" yaml:"user,omitempty"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"ssl_mode" yaml:"ssl_mode,omitempty"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty"`
}

// BadgerConfig configures the embedded backend.
type BadgerConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// CoordinatorConfig holds default values for lock.Options fields, which
// ToLockOptions turns into a lock.Options. condlockd reads only
// BackendName from it; its acquire handler starts from
// lock.DefaultOptions and does not consult the Default* fields.
type CoordinatorConfig struct {
	// BackendName labels the "backend" metric dimension and log field.
	BackendName string `mapstructure:"backend_name" yaml:"backend_name,omitempty"`

	DefaultLeaseDurationInMs int64 `mapstructure:"default_lease_duration_ms" validate:"omitempty,gte=0" yaml:"default_lease_duration_ms,omitempty"`
	DefaultProlongEveryMs    int64 `mapstructure:"default_prolong_every_ms" validate:"omitempty,gte=0" yaml:"default_prolong_every_ms,omitempty"`

	// DefaultProlongEnabled is a pointer so "not set" (default true, per
	// lock.DefaultOptions) is distinguishable from an explicit false.
	DefaultProlongEnabled   *bool `mapstructure:"default_prolong_enabled" yaml:"default_prolong_enabled,omitempty"`
	DefaultTrustLocalTime   bool  `mapstructure:"default_trust_local_time" yaml:"default_trust_local_time"`
	DefaultWaitDurationInMs int64 `mapstructure:"default_wait_duration_ms" validate:"omitempty,gte=0" yaml:"default_wait_duration_ms,omitempty"`

	// DefaultMaxRetryCount is a pointer so "unset" (unbounded) is
	// distinguishable from an explicit 0 (single attempt, no retries).
	DefaultMaxRetryCount *int `mapstructure:"default_max_retry_count" yaml:"default_max_retry_count,omitempty"`
}
