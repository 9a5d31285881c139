package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultVotingPeriod   = 24 * time.Hour
	defaultPollInterval   = 2 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
)

// Config is centralized process configuration. Values load from an optional
// YAML file first, then environment variables override (QUORUM_ prefix).
type Config struct {
	ServiceName        string `yaml:"serviceName"        envconfig:"SERVICE_NAME"`
	HTTPPort           string `yaml:"httpPort"           envconfig:"HTTP_PORT"`
	DatabaseDSN        string `yaml:"databaseDSN"        envconfig:"DATABASE_DSN"`
	VotingPeriod       string `yaml:"votingPeriod"       split_words:"true"`
	WorkerPollInterval string `yaml:"workerPollInterval" split_words:"true"`
	IdempotencyTTL     string `yaml:"idempotencyTTL"     envconfig:"IDEMPOTENCY_TTL"`
	OutboxBatchSize    int    `yaml:"outboxBatchSize"    split_words:"true"`
	MetricsEnabled     bool   `yaml:"metricsEnabled"     split_words:"true"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		ServiceName:     "quorum",
		HTTPPort:        "8080",
		OutboxBatchSize: 100,
		MetricsEnabled:  true,
	}
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := envconfig.Process("quorum", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if _, err := cfg.ResolveVotingPeriod(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.ResolvePollInterval(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.ResolveIdempotencyTTL(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveVotingPeriod parses the configured default voting window.
func (c Config) ResolveVotingPeriod() (time.Duration, error) {
	return parseDuration("votingPeriod", c.VotingPeriod, defaultVotingPeriod)
}

func (c Config) ResolvePollInterval() (time.Duration, error) {
	return parseDuration("workerPollInterval", c.WorkerPollInterval, defaultPollInterval)
}

func (c Config) ResolveIdempotencyTTL() (time.Duration, error) {
	return parseDuration("idempotencyTTL", c.IdempotencyTTL, defaultIdempotencyTTL)
}

// Addr normalizes the HTTP port into a listen address.
func (c Config) Addr() string {
	value := strings.TrimSpace(c.HTTPPort)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, value, err)
	}
	if parsed <= 0 {
		return 0, errors.New(name + " must be positive")
	}
	return parsed, nil
}
