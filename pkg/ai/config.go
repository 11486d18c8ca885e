package ai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// ChainFromEnv builds the provider chain described by spec §4.4's
// "provider chain construction reads env vars": OpenRouter first if
// AI_OPENROUTER_API_KEY is set, then Gemini if AI_GEMINI_API_KEY is set,
// always ending in NoopProvider so a Chain is never empty.
func ChainFromEnv() (*Chain, error) {
	timeout := 20 * time.Second
	if v := os.Getenv("AI_TIMEOUT_MS"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			timeout = ms
		}
	}
	httpClient := NewSharedHTTPClient(timeout)

	var providers []Provider

	if key := os.Getenv("AI_OPENROUTER_API_KEY"); key != "" {
		model := os.Getenv("AI_OPENROUTER_MODEL")
		if model == "" {
			model = "anthropic/claude-3.5-sonnet"
		}
		providers = append(providers, NewOpenRouterProvider(httpClient, key, model))
	}

	if key := os.Getenv("AI_GEMINI_API_KEY"); key != "" {
		model := os.Getenv("AI_GEMINI_MODEL")
		if model == "" {
			model = "gemini-2.0-flash"
		}
		providers = append(providers, NewGeminiProvider(httpClient, key, model))
	}

	if len(providers) == 0 {
		slog.Warn("no AI provider credentials configured, chain will only run the noop provider")
	}
	providers = append(providers, NoopProvider{})

	return NewChain(providers...)
}
