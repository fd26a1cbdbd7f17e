// Command condlockd serves the distributed-lock HTTP API described by
// internal/lockapi against one of pkg/lockstore's backends.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/condlock/condlock/internal/lockapi"
	"github.com/condlock/condlock/internal/logger"
	"github.com/condlock/condlock/internal/telemetry"
	"github.com/condlock/condlock/pkg/lockconfig"
	"github.com/condlock/condlock/pkg/lockcoordinator"
	"github.com/condlock/condlock/pkg/lockstore"
	"github.com/condlock/condlock/pkg/lockstore/badger"
	"github.com/condlock/condlock/pkg/lockstore/dynamodb"
	"github.com/condlock/condlock/pkg/lockstore/memory"
	"github.com/condlock/condlock/pkg/lockstore/sql"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/condlock/config.yaml)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("condlockd %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := lockconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "condlockd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "condlockd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("condlockd starting", "version", version, "backend", cfg.Backend.Type)
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
	}

	backend, reap, err := buildBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build backend: %w", err)
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("backend close error", "error", err)
			}
		}()
	}

	descriptor, err := cfg.ToTableDescriptor()
	if err != nil {
		return fmt.Errorf("build table descriptor: %w", err)
	}

	var metrics *lockcoordinator.Metrics
	if registry != nil {
		metrics = lockcoordinator.NewMetrics(registry)
	}

	coordinator, err := lockcoordinator.New(backend, descriptor,
		lockcoordinator.WithBackendName(cfg.Coordinator.BackendName),
		lockcoordinator.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}
	logger.Info("coordinator ready", "owner", coordinator.OwnerName(), "backend", cfg.Coordinator.BackendName)

	if reap != nil {
		go runReaper(ctx, reap)
	}

	server := lockapi.NewServer(cfg.Server, coordinator, backend, registry)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("condlockd is running", "port", cfg.Server.Port)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, releasing held locks")
		if err := coordinator.ReleaseAllLocks(context.Background()); err != nil {
			logger.Warn("release-all during shutdown returned an error", "error", err)
		}
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("condlockd stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("condlockd stopped")
	}

	return nil
}

// reaper is the subset of *sql.Backend that condlockd's background TTL
// sweep needs; only the sql backend implements it (DynamoDB's TTL is
// native, Badger's is native, memory never persists past process exit).
type reaper interface {
	ReapExpired(ctx context.Context, nowMs int64) (int64, error)
}

// buildBackend dispatches on cfg.Backend.Type and constructs the selected
// lockstore.Backend. Only the sql backend returns a non-nil reaper — its
// ttl_at column is hygiene-only and needs an external sweep, unlike
// DynamoDB/Badger's native TTL.
func buildBackend(ctx context.Context, cfg *lockconfig.Config) (lockstore.Backend, reaper, error) {
	descriptor, err := cfg.ToTableDescriptor()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Backend.Type {
	case "memory":
		return memory.New(), nil, nil

	case "dynamodb":
		client, err := dynamodb.NewClientFromConfig(ctx,
			cfg.Backend.DynamoDB.Endpoint,
			cfg.Backend.DynamoDB.Region,
			cfg.Backend.DynamoDB.AccessKeyID,
			cfg.Backend.DynamoDB.SecretAccessKey,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("dynamodb client: %w", err)
		}
		return dynamodb.New(client, descriptor), nil, nil

	case "sql":
		backend, err := sql.New(&sql.Config{
			Type: sql.DatabaseType(cfg.Backend.SQL.Type),
			SQLite: sql.SQLiteConfig{
				Path: cfg.Backend.SQL.SQLite.Path,
			},
			Postgres: sql.PostgresConfig{
				Host:         cfg.Backend.SQL.Postgres.Host,
				Port:         cfg.Backend.SQL.Postgres.Port,
				Database:     cfg.Backend.SQL.Postgres.Database,
				User:         cfg.Backend.SQL.Postgres.User,
				Password:     cfg.Backend.SQL.Postgres.Password,
				SSLMode:      cfg.Backend.SQL.Postgres.SSLMode,
				MaxOpenConns: cfg.Backend.SQL.Postgres.MaxOpenConns,
				MaxIdleConns: cfg.Backend.SQL.Postgres.MaxIdleConns,
			},
		}, descriptor)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend, nil

	case "badger":
		backend, err := badger.Open(cfg.Backend.Badger.Dir, descriptor)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backend type %q", cfg.Backend.Type)
	}
}

// runReaper sweeps expired sql rows every minute until ctx is cancelled.
func runReaper(ctx context.Context, r reaper) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.ReapExpired(ctx, nowMs())
			if err != nil {
				logger.Warn("reap expired locks failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("reaped expired locks", "count", n)
			}
		}
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
