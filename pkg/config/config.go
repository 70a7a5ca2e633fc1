// Package config loads API settings from defaults, an optional YAML file and
// environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	GeneratorRandom = "random"
	GeneratorRedis  = "redis"
)

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Log     Log     `yaml:"log"`
	Storage Storage `yaml:"storage"`
	IDs     IDs     `yaml:"ids"`
	Events  Events  `yaml:"events"`
	Tracing Tracing `yaml:"tracing"`
	Seed    Seed    `yaml:"seed"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	TLSCert         string        `yaml:"tls_cert"`
	TLSKey          string        `yaml:"tls_key"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Storage selects the repository backend. DBDriver is the database/sql driver
// name used for postgres: "postgres" (lib/pq) or "pgx".
type Storage struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	DBDriver    string `yaml:"db_driver"`
}

type IDs struct {
	Generator string `yaml:"generator"`
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
}

// Events configures order event publishing. An empty AMQPURL disables it.
type Events struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

type Tracing struct {
	Host        string  `yaml:"host"`
	Probability float64 `yaml:"probability"`
}

type Seed struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns settings for a local, memory-backed instance.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log:     Log{Level: "info"},
		Storage: Storage{Driver: StorageMemory, DBDriver: "postgres"},
		IDs:     IDs{Generator: GeneratorRandom, RedisKey: "grubdash:next_id"},
		Events:  Events{Exchange: "grubdash.orders"},
		Tracing: Tracing{Probability: 1.0},
		Seed:    Seed{Enabled: true},
	}
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("TLS_CERT", &cfg.HTTP.TLSCert)
	str("TLS_KEY", &cfg.HTTP.TLSKey)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("DATABASE_URL", &cfg.Storage.DatabaseURL)
	str("DB_DRIVER", &cfg.Storage.DBDriver)
	str("ID_GENERATOR", &cfg.IDs.Generator)
	str("REDIS_ADDR", &cfg.IDs.RedisAddr)
	str("AMQP_URL", &cfg.Events.AMQPURL)
	str("OTEL_HOST", &cfg.Tracing.Host)

	if v, ok := lookup("SEED_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEED_ENABLED: %w", err)
		}
		cfg.Seed.Enabled = b
	}
	return nil
}

// Validate rejects combinations the API cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if (c.HTTP.TLSCert == "") != (c.HTTP.TLSKey == "") {
		errs = append(errs, errors.New("http.tls_cert and http.tls_key must be set together"))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for postgres"))
		}
		if c.Storage.DBDriver != "postgres" && c.Storage.DBDriver != "pgx" {
			errs = append(errs, fmt.Errorf("storage.db_driver %q is not supported", c.Storage.DBDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	switch c.IDs.Generator {
	case GeneratorRandom:
	case GeneratorRedis:
		if c.IDs.RedisAddr == "" {
			errs = append(errs, errors.New("ids.redis_addr is required for the redis generator"))
		}
	default:
		errs = append(errs, fmt.Errorf("ids.generator %q is not supported", c.IDs.Generator))
	}

	if c.Tracing.Probability < 0 || c.Tracing.Probability > 1 {
		errs = append(errs, errors.New("tracing.probability must be between 0 and 1"))
	}

	return errors.Join(errs...)
}
