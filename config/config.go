// Package config loads process configuration from the environment,
// twelve-factor style: environment variables override an optional local
// .env file, which overrides the struct tag defaults.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every configuration input the subscription index needs.
// Tags:
//
//	env: environment variable name
//	envDefault: default value if not set
type Config struct {
	// Identity
	BrokerID int `env:"BROKER_ID,required"`

	// Remote store (Redis)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Cluster bus (NATS)
	EnableCluster  bool   `env:"ENABLE_CLUSTER" envDefault:"true"`
	NATSURL        string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	ClusterChannel string `env:"CLUSTER_CHANNEL" envDefault:"broker.subscriptions"`
	GossipRateHz   int    `env:"GOSSIP_RATE_HZ" envDefault:"200"`
	GossipBurst    int    `env:"GOSSIP_BURST" envDefault:"50"`

	// Persistent-lane key layout
	TopicSetKey        string `env:"TOPIC_SET_KEY" envDefault:"sub:topics"`
	TopicPrefix        string `env:"TOPIC_PREFIX" envDefault:"sub:topic:"`
	ClientTopicsPrefix string `env:"CLIENT_TOPICS_PREFIX" envDefault:"sub:client:"`
	EnableInnerCache   bool   `env:"ENABLE_INNER_CACHE" envDefault:"true"`

	// System-topic namespace
	SysTopicPrefix string `env:"SYS_TOPIC_PREFIX" envDefault:"$SYS/"`

	// Admin introspection API
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":8080"`

	// Monitoring
	MetricsInterval time.Duration `env:"METRICS_INTERVAL" envDefault:"15s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from a local .env file (if present) and the
// process environment, validates it, and returns it. logger may be nil.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("config: no .env file found, using environment variables only")
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for internal consistency.
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.EnableCluster && c.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when ENABLE_CLUSTER is true")
	}
	if c.EnableCluster && c.ClusterChannel == "" {
		return fmt.Errorf("CLUSTER_CHANNEL is required when ENABLE_CLUSTER is true")
	}
	if c.GossipRateHz < 1 {
		return fmt.Errorf("GOSSIP_RATE_HZ must be > 0, got %d", c.GossipRateHz)
	}
	if c.TopicSetKey == "" || c.TopicPrefix == "" || c.ClientTopicsPrefix == "" {
		return fmt.Errorf("TOPIC_SET_KEY, TOPIC_PREFIX, and CLIENT_TOPICS_PREFIX must all be non-empty")
	}
	if c.SysTopicPrefix == "" {
		return fmt.Errorf("SYS_TOPIC_PREFIX must be non-empty")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console (got: %s)", c.LogFormat)
	}

	return nil
}

// LogConfig logs the loaded configuration at startup.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Int("broker_id", c.BrokerID).
		Str("redis_addr", c.RedisAddr).
		Bool("enable_cluster", c.EnableCluster).
		Str("nats_url", c.NATSURL).
		Str("cluster_channel", c.ClusterChannel).
		Bool("enable_inner_cache", c.EnableInnerCache).
		Str("sys_topic_prefix", c.SysTopicPrefix).
		Str("admin_addr", c.AdminAddr).
		Str("environment", c.Environment).
		Msg("config: loaded")
}
