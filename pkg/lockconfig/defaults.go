package lockconfig

import (
	"strings"
	"time"

	"github.com/condlock/condlock/pkg/lock"
	"github.com/condlock/condlock/pkg/lockstore"
)

// ApplyDefaults fills in any unspecified fields with sensible defaults,
// one applyXDefaults helper per sub-config, each replacing only
// zero-valued fields so an explicitly configured value is never
// overwritten.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyServerDefaults(&cfg.Server)
	applyTableDefaults(&cfg.Table)
	applyBackendDefaults(&cfg.Backend)
	applyCoordinatorDefaults(&cfg.Coordinator)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.Profiling.Enabled && cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if cfg.Profiling.Enabled && len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_objects", "inuse_objects"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8686
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyTableDefaults(cfg *TableConfig) {
	if cfg.TableName == "" {
		cfg.TableName = lockstore.DefaultTableName
	}
	if cfg.PartitionKey == "" {
		cfg.PartitionKey = lockstore.DefaultPartitionKey
	}
	if cfg.SortKey == "" {
		cfg.SortKey = lockstore.DefaultSortKey
	}
	if cfg.TTLKey != "" && cfg.TTLInMs == 0 {
		cfg.TTLInMs = lockstore.DefaultTTLInMs
	}
}

func applyBackendDefaults(cfg *BackendConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Type == "sql" && cfg.SQL.Type == "" {
		cfg.SQL.Type = "sqlite"
	}
	if cfg.Type == "badger" && cfg.Badger.Dir == "" {
		cfg.Badger.Dir = "/var/lib/condlock/badger"
	}
}

func applyCoordinatorDefaults(cfg *CoordinatorConfig) {
	if cfg.BackendName == "" {
		cfg.BackendName = "condlock"
	}
	if cfg.DefaultLeaseDurationInMs == 0 {
		cfg.DefaultLeaseDurationInMs = lock.DefaultLeaseDurationInMs
	}
	if cfg.DefaultProlongEveryMs == 0 {
		cfg.DefaultProlongEveryMs = lock.DefaultProlongEveryMs
	}
	if cfg.DefaultProlongEnabled == nil {
		enabled := true
		cfg.DefaultProlongEnabled = &enabled
	}
}

// ToTableDescriptor builds a lockstore.TableDescriptor from the loaded
// table configuration.
func (c *Config) ToTableDescriptor() (*lockstore.TableDescriptor, error) {
	return lockstore.NewTableDescriptor(
		c.Table.TableName, c.Table.PartitionKey, c.Table.SortKey,
		c.Table.TTLKey, c.Table.TTLInMs,
	)
}

// ToLockOptions builds a lock.Options from the configured coordinator
// defaults. Neither the coordinator nor condlockd's handlers call it.
func (c *CoordinatorConfig) ToLockOptions() lock.Options {
	prolongEnabled := true
	if c.DefaultProlongEnabled != nil {
		prolongEnabled = *c.DefaultProlongEnabled
	}

	opts := lock.DefaultOptions().
		WithLeaseDurationInMs(c.DefaultLeaseDurationInMs).
		WithProlongLeaseEnabled(prolongEnabled).
		WithProlongEveryMs(c.DefaultProlongEveryMs).
		WithTrustLocalTime(c.DefaultTrustLocalTime)

	if c.DefaultWaitDurationInMs != 0 {
		opts = opts.WithWaitDurationInMs(c.DefaultWaitDurationInMs)
	}
	if c.DefaultMaxRetryCount != nil {
		opts = opts.WithMaxRetryCount(*c.DefaultMaxRetryCount)
	}
	return opts
}
