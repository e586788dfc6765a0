package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds engine tuning loaded from an optional YAML file. Infrastructure
// endpoints (DB, redis, NATS) come from the environment instead.
type Config struct {
	Engine struct {
		SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
		SweepBatchSize       int `yaml:"sweep_batch_size"`
		BidMaxAttempts       int `yaml:"bid_max_attempts"`
		BidRetryBackoffMs    int `yaml:"bid_retry_backoff_ms"`
	} `yaml:"engine"`
	Websocket struct {
		PingIntervalSeconds int `yaml:"ping_interval_seconds"`
		ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	} `yaml:"websocket"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func defaultConfig() *Config {
	var config Config
	config.Engine.SweepIntervalSeconds = 10
	config.Engine.SweepBatchSize = 50
	config.Engine.BidMaxAttempts = 4
	config.Engine.BidRetryBackoffMs = 25
	config.Websocket.PingIntervalSeconds = 30
	config.Websocket.ReadTimeoutSeconds = 60
	return &config
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func (c *Config) sweepInterval() time.Duration {
	return time.Duration(c.Engine.SweepIntervalSeconds) * time.Second
}

func (c *Config) bidRetryBackoff() time.Duration {
	return time.Duration(c.Engine.BidRetryBackoffMs) * time.Millisecond
}
