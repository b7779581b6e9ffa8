// Package config holds process configuration for the Courtside orchestration
// core. Runtime settings come from environment variables with sensible
// defaults; role definitions, routing tables, and key→permission maps are
// static configuration data supplied at startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/courtside/courtside/pkg/permissions"
)

// Config holds all configuration for the orchestration core.
type Config struct {
	Port         int
	Version      string
	Telemetry    TelemetryConfig
	Auth         AuthConfig
	Context      ContextConfig
	Orchestrator OrchestratorConfig
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type AuthConfig struct {
	// KeyLevels maps API keys to effective permission levels, parsed from
	// COURTSIDE_API_KEYS ("key1=admin,key2=read_only"). Empty map disables
	// key auth; every caller then gets DefaultLevel.
	KeyLevels    map[string]permissions.Level
	DefaultLevel permissions.Level
}

type ContextConfig struct {
	// MaxTokenBudget is the fixed budget a role's TokenBudgetFraction is
	// applied to.
	MaxTokenBudget int
	TTL            time.Duration
	CacheSize      int
}

type OrchestratorConfig struct {
	// HistoryLimit bounds each session's history ring.
	HistoryLimit int

	// TimeoutFloor is the minimum per-call dispatch timeout regardless of a
	// capability's estimate.
	TimeoutFloor time.Duration

	// TimeoutFactor scales a capability's EstimatedDurationMs into its
	// dispatch timeout.
	TimeoutFactor float64

	// WorkerPoolSize bounds concurrent worker dispatch per request.
	WorkerPoolSize int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("COURTSIDE_PORT", 8080),
		Version: envStr("COURTSIDE_VERSION", "0.4.0"),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "courtside-core"),
		},
		Auth: AuthConfig{
			KeyLevels:    parseKeyLevels(os.Getenv("COURTSIDE_API_KEYS")),
			DefaultLevel: envLevel("COURTSIDE_DEFAULT_PERMISSION", permissions.ReadExecute),
		},
		Context: ContextConfig{
			MaxTokenBudget: envInt("COURTSIDE_MAX_TOKEN_BUDGET", 16000),
			TTL:            envDuration("COURTSIDE_CONTEXT_TTL", 60*time.Second),
			CacheSize:      envInt("COURTSIDE_CONTEXT_CACHE_SIZE", 256),
		},
		Orchestrator: OrchestratorConfig{
			HistoryLimit:   envInt("COURTSIDE_HISTORY_LIMIT", 50),
			TimeoutFloor:   envDuration("COURTSIDE_DISPATCH_TIMEOUT_FLOOR", 250*time.Millisecond),
			TimeoutFactor:  2.0,
			WorkerPoolSize: envInt("COURTSIDE_WORKER_POOL_SIZE", 8),
		},
	}
}

// parseKeyLevels parses "key1=admin,key2=read_only" into a key→level map.
// Entries with an unknown level are dropped.
func parseKeyLevels(raw string) map[string]permissions.Level {
	levels := make(map[string]permissions.Level)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, levelStr, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		level, err := permissions.Parse(strings.TrimSpace(levelStr))
		if err != nil {
			continue
		}
		levels[strings.TrimSpace(key)] = level
	}
	return levels
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback permissions.Level) permissions.Level {
	if v := os.Getenv(key); v != "" {
		if l, err := permissions.Parse(v); err == nil {
			return l
		}
	}
	return fallback
}
