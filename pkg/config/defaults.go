package config

import "time"

// Defaults returns the compiled-in configuration baseline, the lowest
// precedence tier in the load order (spec §6.4).
func Defaults() Config {
	return Config{
		AI: AIConfig{
			Provider:      "openrouter",
			FallbackOrder: []string{"openrouter", "gemini", "noop"},
			Model:         "openai/gpt-4o-mini",
			TimeoutMs:     20_000,
			MaxRetries:    3,
		},
		ChangeEngine: ChangeEngineConfig{
			DefaultRespectLocks: true,
			DefaultAutoApply:    false,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Events: EventsConfig{
			WSWriteTimeout: 5 * time.Second,
			RedisPrefix:    "itineraryd:",
		},
	}
}
