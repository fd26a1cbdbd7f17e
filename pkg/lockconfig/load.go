package lockconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CONDLOCK_*)
//  2. Configuration file
//  3. Default values
//
// Environment variables override only keys present in the configuration
// file. When no file is found, Load returns GetDefaultConfig() without
// reading the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("lockconfig: unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("lockconfig: validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate runs struct-tag validation followed by cross-field checks that
// validator tags can't express (the lease/prolongation invariant is
// pkg/lock's job at acquisition time, not this package's — this only
// validates the shape of the loaded configuration).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Backend.Type == "sql" && cfg.Backend.SQL.Type == "postgres" {
		if cfg.Backend.SQL.Postgres.Host == "" {
			return fmt.Errorf("backend.sql.postgres.host is required")
		}
		if cfg.Backend.SQL.Postgres.Database == "" {
			return fmt.Errorf("backend.sql.postgres.database is required")
		}
	}
	return nil
}

// GetDefaultConfig returns a Config with every field at its default; Load
// returns it when no configuration file is found.
func GetDefaultConfig() *Config {
	cfg := &Config{Backend: BackendConfig{Type: "memory"}}
	ApplyDefaults(cfg)
	return cfg
}

// setupViper wires environment variable and config-file sourcing.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CONDLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("lockconfig: read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// defaultConfigDir returns $XDG_CONFIG_HOME/condlock, falling back to
// ~/.config/condlock.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "condlock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "condlock")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}
