package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load resolves Config through the full precedence chain (spec §6.4):
// compiled defaults, deploy/config/.env, the process environment, then an
// optional deploy/config/runtime.yaml overlay for the settings an operator
// may want to hot-adjust without a redeploy. envFile and runtimeYAML may be
// empty to skip their tier; a missing file at either path is not an error.
func Load(envFile, runtimeYAML string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load env file", "path", envFile, "error", err)
		}
	}

	cfg := Defaults()
	applyEnv(&cfg)

	if runtimeYAML != "" {
		if err := applyRuntimeYAML(&cfg, runtimeYAML); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("AI_FALLBACK_ORDER"); v != "" {
		cfg.AI.FallbackOrder = strings.Split(v, ",")
	}
	if v, ok := intFromEnv("AI_TIMEOUT_MS"); ok {
		cfg.AI.TimeoutMs = v
	}
	if v, ok := intFromEnv("AI_MAX_RETRIES"); ok {
		cfg.AI.MaxRetries = v
	}

	if v, ok := boolFromEnv("CHANGE_ENGINE_RESPECT_LOCKS"); ok {
		cfg.ChangeEngine.DefaultRespectLocks = v
	}
	if v, ok := boolFromEnv("CHANGE_ENGINE_AUTO_APPLY"); ok {
		cfg.ChangeEngine.DefaultAutoApply = v
	}

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = strings.Split(v, ",")
	}

	if v, ok := intFromEnv("EVENTS_WS_WRITE_TIMEOUT_MS"); ok {
		cfg.Events.WSWriteTimeout = time.Duration(v) * time.Millisecond
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Events.RedisURL = v
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		cfg.Events.RedisPrefix = v
	}
}

func intFromEnv(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", v, "error", err)
		return 0, false
	}
	return n, true
}

func boolFromEnv(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring invalid boolean env var", "key", key, "value", v, "error", err)
		return false, false
	}
	return b, true
}

// applyRuntimeYAML overlays the handful of settings runtime.yaml is allowed
// to hot-adjust: changeEngine.defaultRespectLocks and ai.timeoutMs (spec
// §6.4). A missing file is not an error; a malformed one is.
func applyRuntimeYAML(cfg *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrInvalidValue, filepath.Base(path), err)
	}

	if v.IsSet("changeEngine.defaultRespectLocks") {
		cfg.ChangeEngine.DefaultRespectLocks = v.GetBool("changeEngine.defaultRespectLocks")
	}
	if v.IsSet("ai.timeoutMs") {
		cfg.AI.TimeoutMs = v.GetInt("ai.timeoutMs")
	}

	return nil
}
