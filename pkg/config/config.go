// Package config loads itineraryd's settings in layered precedence order:
// compiled defaults, then deploy/config/.env (godotenv), then the process
// environment, then an optional deploy/config/runtime.yaml overlay read
// through viper for the handful of settings an operator may want to
// hot-adjust without a redeploy. This mirrors the teacher corpus's split
// between .env bootstrap and YAML-driven registries, generalized down to
// itineraryd's much smaller settings surface.
package config

import "time"

// Config is the fully resolved configuration for one process.
type Config struct {
	AI           AIConfig
	ChangeEngine ChangeEngineConfig
	Store        StoreConfig
	HTTP         HTTPConfig
	Events       EventsConfig
}

// AIConfig governs the AI client chain (C4).
type AIConfig struct {
	Provider       string // "openrouter", "gemini", or "noop"
	FallbackOrder  []string
	Model          string
	TimeoutMs      int
	MaxRetries     int
}

// ChangeEngineConfig governs the Change Engine's (C3) default apply policy.
type ChangeEngineConfig struct {
	DefaultRespectLocks bool
	DefaultAutoApply    bool
}

// StoreConfig selects and configures the persistence backend (C2).
type StoreConfig struct {
	Backend string // "memory" or "postgres"
}

// HTTPConfig governs the API server's bind address and CORS policy.
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

// EventsConfig governs the Event Bus (C7) and its optional Redis bridge.
type EventsConfig struct {
	WSWriteTimeout time.Duration
	RedisURL       string // empty disables the cross-process bridge
	RedisPrefix    string
}
