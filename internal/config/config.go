// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the application configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port string
	// DatabaseURL is the Postgres connection string. Empty with InMemory
	// set runs without a database.
	DatabaseURL string
	// InMemory switches persistence to the in-memory store (development).
	InMemory bool
	// RatesFile is the YAML exchange-rate table. When empty and a database
	// is configured, rates load from the exchange_rates table instead.
	RatesFile string
	// ReferenceCurrency is the code all stored rates are expressed against.
	// Only consulted when rates come from the database; a rates file names
	// its own reference.
	ReferenceCurrency string
	// SchedulerIntervalMinutes is the recurring-transaction tick interval.
	SchedulerIntervalMinutes int
	// ImportWorkers is the number of concurrent import job workers.
	ImportWorkers int
	// ImportQueueSize bounds the pending import queue.
	ImportQueueSize int
}

// Load reads configuration from the environment, first loading a .env file
// when one is present (or the explicitly given path).
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Ignore a missing default .env.
		_ = godotenv.Load()
	}

	interval, err := parseIntEnv("SCHEDULER_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	workers, err := parseIntEnv("IMPORT_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	queueSize, err := parseIntEnv("IMPORT_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                     getEnvOrDefault("PORT", "8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		InMemory:                 os.Getenv("IN_MEMORY_STORE") == "true",
		RatesFile:                os.Getenv("RATES_FILE"),
		ReferenceCurrency:        getEnvOrDefault("REFERENCE_CURRENCY", "USD"),
		SchedulerIntervalMinutes: interval,
		ImportWorkers:            workers,
		ImportQueueSize:          queueSize,
	}
	if cfg.DatabaseURL == "" && !cfg.InMemory {
		return nil, fmt.Errorf("DATABASE_URL is required (or set IN_MEMORY_STORE=true)")
	}
	if cfg.RatesFile == "" && cfg.InMemory {
		return nil, fmt.Errorf("RATES_FILE is required with the in-memory store")
	}
	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
