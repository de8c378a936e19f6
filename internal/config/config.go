package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-twin/internal/engine"
)

// Config captures the settings required to boot the twin monitor.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Poller  PollerConfig  `yaml:"poller"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	// Twins are registered by name at startup.
	Twins []string `yaml:"twins"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// SourceConfig configures access to the remote telemetry source.
type SourceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PollerConfig controls the poll scheduler's worker pool.
type PollerConfig struct {
	MaxConcurrent int `yaml:"maxConcurrent"`
}

// StoreConfig controls the per-twin rolling window.
type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_TWIN_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Source.URL) == "" {
		errs = append(errs, errors.New("source.url is required"))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, errors.New("source.timeout must be positive"))
	} else if budget := RetryBudget(c.Source.Timeout); budget >= engine.PollInterval {
		errs = append(errs, fmt.Errorf("source.timeout %s gives a worst-case cycle of %s, must stay under the %s poll interval",
			c.Source.Timeout, budget, engine.PollInterval))
	}
	if c.Store.Capacity < 1 {
		errs = append(errs, errors.New("store.capacity must be at least 1"))
	}
	if c.Server.GracefulTimeout <= 0 {
		errs = append(errs, errors.New("server.gracefulTimeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// RetryBudget is the longest a poll cycle can take when every attempt times out.
func RetryBudget(timeout time.Duration) time.Duration {
	return engine.MaxAttempts*timeout + (engine.MaxAttempts-1)*engine.RetryDelay
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			URL:     "http://localhost:8090/api/v1/telemetry",
			Timeout: 900 * time.Millisecond,
		},
		Poller:  PollerConfig{MaxConcurrent: 32},
		Store:   StoreConfig{Capacity: 20},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_TWIN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_TWIN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_TWIN_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_TWIN_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("MIRADOR_TWIN_SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_TWIN_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Poller.MaxConcurrent = n
		}
	}
	if v := os.Getenv("MIRADOR_TWIN_STORE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.Capacity = n
		}
	}
	if v := os.Getenv("MIRADOR_TWIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_TWIN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_TWIN_TWINS"); v != "" {
		cfg.Twins = cfg.Twins[:0]
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Twins = append(cfg.Twins, name)
			}
		}
	}
}
