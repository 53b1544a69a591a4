// Package config loads quillboard settings from flags, environment and an
// optional config file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables, e.g. QUILL_REDIS.
const EnvPrefix = "QUILL"

// Store engines.
const (
	EngineHybrid   = "hybrid"
	EnginePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Addr string

	Engine      string
	RedisAddr   string
	BadgerPath  string
	PostgresDSN string

	AuthSecret string
	SessionTTL time.Duration

	LogFormat string

	ShutdownTimeout time.Duration
}

// SetDefaults registers the defaults every command relies on.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("store", EngineHybrid)
	v.SetDefault("redis", "localhost:6379")
	v.SetDefault("badger", "./badger-data")
	v.SetDefault("postgres-dsn", "")
	v.SetDefault("auth-secret", "")
	v.SetDefault("session-ttl", 24*time.Hour)
	v.SetDefault("log-format", "console")
	v.SetDefault("shutdown-timeout", 10*time.Second)
}

// New returns a viper instance reading QUILL_* variables; dashes in keys map
// to underscores (postgres-dsn -> QUILL_POSTGRES_DSN).
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// ReadFile loads path, or ./config.yaml when path is empty. A missing default
// file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Addr:            v.GetString("addr"),
		Engine:          strings.ToLower(v.GetString("store")),
		RedisAddr:       v.GetString("redis"),
		BadgerPath:      v.GetString("badger"),
		PostgresDSN:     v.GetString("postgres-dsn"),
		AuthSecret:      v.GetString("auth-secret"),
		SessionTTL:      v.GetDuration("session-ttl"),
		LogFormat:       v.GetString("log-format"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate validates the configuration.
func (c *Config) validate() error {
	switch c.Engine {
	case EngineHybrid:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the %s store", EngineHybrid)
		}
	case EnginePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres-dsn is required for the %s store", EnginePostgres)
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Engine, EngineHybrid, EnginePostgres)
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("auth-secret is required (set %s_AUTH_SECRET)", EnvPrefix)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session-ttl must be positive")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log-format must be console or json, got %q", c.LogFormat)
	}
	return nil
}
