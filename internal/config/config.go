package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port         int
	DatabasePath string
	DataDir      string

	// Pipeline pacing
	BatchSize         int
	ItemDelay         time.Duration
	BatchDelay        time.Duration
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	WorkerInterval    time.Duration

	// Provider browser options
	ProviderProxy       string
	ProviderBrowserPath string
	ProviderStealth     bool
}

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}

	batchSize, err := getEnvInt("BATCH_SIZE", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse BATCH_SIZE: %w", err)
	}

	itemDelay, err := getEnvDuration("ITEM_DELAY", 2*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse ITEM_DELAY: %w", err)
	}

	batchDelay, err := getEnvDuration("BATCH_DELAY", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse BATCH_DELAY: %w", err)
	}

	retryAttempts, err := getEnvInt("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse RETRY_MAX_ATTEMPTS: %w", err)
	}

	retryDelay, err := getEnvDuration("RETRY_INITIAL_DELAY", time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse RETRY_INITIAL_DELAY: %w", err)
	}

	workerInterval, err := getEnvDuration("WORKER_INTERVAL", time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse WORKER_INTERVAL: %w", err)
	}

	cfg := Config{
		Port:                port,
		DatabasePath:        getEnv("DATABASE_PATH", "data/prospector.db"),
		DataDir:             getEnv("DATA_DIR", "data"),
		BatchSize:           batchSize,
		ItemDelay:           itemDelay,
		BatchDelay:          batchDelay,
		RetryMaxAttempts:    retryAttempts,
		RetryInitialDelay:   retryDelay,
		WorkerInterval:      workerInterval,
		ProviderProxy:       getEnv("PROVIDER_PROXY", ""),
		ProviderBrowserPath: getEnv("PROVIDER_BROWSER_PATH", ""),
		ProviderStealth:     getEnv("PROVIDER_STEALTH", "true") == "true",
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
