/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects how collection changes are broadcast.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// Query execution
	QueryBatchSize int
	QueryWorkers   int
	GenerateWait   time.Duration

	// Events and result cache
	EventBus      EventBusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	CacheEnabled  bool
	CacheTTL      time.Duration
	InstanceID    string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	UnprefixedEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"DYNBIAS_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"DYNBIAS_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"DYNBIAS_HTTP_PORT"}, 8080),
		DBBackend:   DatabaseBackend(strings.ToLower(getEnvAny([]string{"DYNBIAS_DB_BACKEND"}, string(DatabaseSQLite)))),
		DBDSN:       getEnvAny([]string{"DYNBIAS_DB_DSN"}, "dynbias.db"),

		QueryBatchSize: getEnvIntAny([]string{"DYNBIAS_QUERY_BATCH_SIZE"}, 500),
		QueryWorkers:   getEnvIntAny([]string{"DYNBIAS_QUERY_WORKERS"}, 4),
		GenerateWait:   getEnvDurationAny([]string{"DYNBIAS_GENERATE_WAIT"}, 5*time.Second),

		EventBus:      EventBusBackend(strings.ToLower(getEnvAny([]string{"DYNBIAS_EVENT_BUS"}, string(EventBusMemory)))),
		RedisAddr:     getEnvAny([]string{"DYNBIAS_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"DYNBIAS_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"DYNBIAS_REDIS_DB", "REDIS_DB"}, 0),
		NATSURL:       getEnvAny([]string{"DYNBIAS_NATS_URL", "NATS_URL"}, "nats://localhost:4222"),
		CacheEnabled:  getEnvBoolAny([]string{"DYNBIAS_CACHE_ENABLED"}, false),
		CacheTTL:      getEnvDurationAny([]string{"DYNBIAS_CACHE_TTL"}, 10*time.Minute),
		InstanceID:    getEnvAny([]string{"DYNBIAS_INSTANCE_ID"}, ""),

		TracingEnabled:    getEnvBoolAny([]string{"DYNBIAS_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"DYNBIAS_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"DYNBIAS_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.UnprefixedEnvWarnings = detectUnprefixedEnv()

	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return fmt.Errorf("unsupported database backend %q", c.DBBackend)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DYNBIAS_DB_DSN must be provided")
	}

	switch c.EventBus {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return fmt.Errorf("unsupported event bus %q", c.EventBus)
	}

	if c.QueryBatchSize <= 0 {
		return fmt.Errorf("DYNBIAS_QUERY_BATCH_SIZE must be positive, got %d", c.QueryBatchSize)
	}
	if c.QueryWorkers <= 0 {
		return fmt.Errorf("DYNBIAS_QUERY_WORKERS must be positive, got %d", c.QueryWorkers)
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		return fmt.Errorf("DYNBIAS_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

// HTTPAddr returns the listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// detectUnprefixedEnv reports settings that look meant for this service but
// lack the DYNBIAS_ prefix and are therefore ignored.
func detectUnprefixedEnv() []string {
	keys := []string{"DB_BACKEND", "DB_DSN", "EVENT_BUS", "CACHE_ENABLED", "CACHE_TTL", "QUERY_BATCH_SIZE", "QUERY_WORKERS"}
	var warnings []string
	for _, key := range keys {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("env key %s is set but ignored; use DYNBIAS_%s", key, key))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go durations ("750ms") or whole seconds ("5").
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
