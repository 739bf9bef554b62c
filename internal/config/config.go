// Package config loads service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pantry/config.yaml",
}

type Config struct {
	Server    ServerConfig   `koanf:"server"`
	Database  DatabaseConfig `koanf:"database"`
	Redis     RedisConfig    `koanf:"redis"`
	Ledger    LedgerConfig   `koanf:"ledger"`
	Logging   LoggingConfig  `koanf:"logging"`
	Densities []DensitySeed  `koanf:"densities"`
}

type ServerConfig struct {
	HTTPAddr        string        `koanf:"http_addr"`
	GRPCAddr        string        `koanf:"grpc_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per RateWindow per client IP on /api; 0 disables.
	RateLimit   int           `koanf:"rate_limit"`
	RateWindow  time.Duration `koanf:"rate_window"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // mysql or sqlite
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Addr           string        `koanf:"addr"`
	PoolSize       int           `koanf:"pool_size"`
	DensityTTL     time.Duration `koanf:"density_ttl"`
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
}

type LedgerConfig struct {
	// MaxRetries bounds optimistic-lock retries per ingredient update.
	MaxRetries int `koanf:"max_retries"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DensitySeed is a density entry written to the store at start-up:
// Mass MassUnit of the ingredient fill Volume VolumeUnit.
type DensitySeed struct {
	Name       string  `koanf:"name"`
	Mass       float64 `koanf:"mass"`
	MassUnit   string  `koanf:"mass_unit"`
	Volume     float64 `koanf:"volume"`
	VolumeUnit string  `koanf:"volume_unit"`
}

func (d DensitySeed) Entry() domain.DensityEntry {
	return domain.DensityEntry{
		IngredientName:      domain.DensityKey(d.Name),
		ReferenceMass:       decimal.NewFromFloat(d.Mass),
		ReferenceMassUnit:   d.MassUnit,
		ReferenceVolume:     decimal.NewFromFloat(d.Volume),
		ReferenceVolumeUnit: d.VolumeUnit,
	}
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 5 * time.Second,
			RateWindow:      time.Minute,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:pantry.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Addr:           "localhost:6379",
			PoolSize:       100,
			DensityTTL:     time.Hour,
			IdempotencyTTL: 24 * time.Hour,
		},
		Ledger: LedgerConfig{
			MaxRetries: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Densities: []DensitySeed{
			{Name: "flour", Mass: 120, MassUnit: "gram", Volume: 1, VolumeUnit: "cup"},
			{Name: "sugar", Mass: 200, MassUnit: "gram", Volume: 1, VolumeUnit: "cup"},
			{Name: "brown sugar", Mass: 220, MassUnit: "gram", Volume: 1, VolumeUnit: "cup"},
			{Name: "butter", Mass: 227, MassUnit: "gram", Volume: 1, VolumeUnit: "cup"},
			{Name: "rice", Mass: 185, MassUnit: "gram", Volume: 1, VolumeUnit: "cup"},
			{Name: "oats", Mass: 90, MassUnit: "gram", Volume: 1, VolumeUnit: "cup"},
			{Name: "honey", Mass: 21, MassUnit: "gram", Volume: 1, VolumeUnit: "tablespoon"},
		},
	}
}

// Load builds the configuration. An empty path searches CONFIG_PATH and
// DefaultConfigPaths; running without a file is allowed.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"http_addr":             "server.http_addr",
	"grpc_addr":             "server.grpc_addr",
	"shutdown_timeout":      "server.shutdown_timeout",
	"rate_limit":            "server.rate_limit",
	"database_driver":       "database.driver",
	"database_dsn":          "database.dsn",
	"database_auto_migrate": "database.auto_migrate",
	"redis_enabled":         "redis.enabled",
	"redis_addr":            "redis.addr",
	"redis_pool_size":       "redis.pool_size",
	"redis_density_ttl":     "redis.density_ttl",
	"ledger_max_retries":    "ledger.max_retries",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_caller":            "logging.caller",
}

// envTransformFunc maps known variables (DATABASE_DSN -> database.dsn) and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		errs = append(errs, errors.New("server.rate_window must be positive when rate_limit is set"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Ledger.MaxRetries <= 0 {
		errs = append(errs, errors.New("ledger.max_retries must be positive"))
	}
	for i, d := range c.Densities {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("densities[%d].name is required", i))
		}
		if d.Mass <= 0 || d.Volume <= 0 {
			errs = append(errs, fmt.Errorf("densities[%d] (%s): mass and volume must be positive", i, d.Name))
		}
		if d.MassUnit == "" || d.VolumeUnit == "" {
			errs = append(errs, fmt.Errorf("densities[%d] (%s): units are required", i, d.Name))
		}
	}
	return errors.Join(errs...)
}
