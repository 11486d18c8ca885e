// Command itineraryd runs the itinerary API server: the Change Engine, the
// Planner/Enrichment agents, the chat orchestrator, and the HTTP/WebSocket
// surface described in spec §6, wired together from layered configuration
// (pkg/config).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripforge/itineraryd/pkg/agent"
	"github.com/tripforge/itineraryd/pkg/ai"
	"github.com/tripforge/itineraryd/pkg/api"
	"github.com/tripforge/itineraryd/pkg/config"
	"github.com/tripforge/itineraryd/pkg/engine"
	"github.com/tripforge/itineraryd/pkg/events"
	"github.com/tripforge/itineraryd/pkg/orchestrator"
	"github.com/tripforge/itineraryd/pkg/store"
	"github.com/tripforge/itineraryd/pkg/version"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("itineraryd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(os.Getenv("ITINERARYD_ENV_FILE"), os.Getenv("ITINERARYD_RUNTIME_YAML"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer closeStore()

	bus := events.NewBus()
	connManager := events.NewConnectionManager(bus, cfg.Events.WSWriteTimeout)

	var pub engine.Publisher = bus
	if cfg.Events.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisURL})
		bridge := events.NewRedisBridge(redisClient, bus, cfg.Events.RedisPrefix)
		pub = &bridgingPublisher{bus: bus, bridge: bridge}
		logger.Info("redis event bridge enabled", "addr", cfg.Events.RedisURL)
	}

	eng := engine.New(st, pub)

	aiChain, err := buildAIChain(cfg.AI)
	if err != nil {
		return fmt.Errorf("build ai chain: %w", err)
	}

	planner := agent.NewPlannerAgent(aiChain)
	orch := orchestrator.New(eng, planner, aiChain)
	runRegistry := orchestrator.NewRunRegistry()

	srv := api.NewServer(eng, st, orch, planner, runRegistry, bus, connManager, cfg.HTTP.AllowedOrigins)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("itineraryd listening", "addr", cfg.HTTP.Addr, "version", version.Full())
		errCh <- srv.Start(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// buildStore constructs the persistence backend selected by cfg.Backend. The
// returned closer is a no-op for the in-memory backend and closes the
// connection pool for the postgres backend.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "postgres":
		pgCfg, err := store.LoadConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("load postgres config: %w", err)
		}
		if err := pgCfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("validate postgres config: %w", err)
		}
		pg, err := store.NewPostgresStore(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// buildAIChain assembles the provider chain from cfg.AI: cfg.Provider first,
// then the remaining cfg.FallbackOrder entries in order, with TimeoutMs
// bounding the shared HTTP client. API keys never belong in the layered
// config file, so they are read from AI_OPENROUTER_API_KEY and
// AI_GEMINI_API_KEY; a provider whose key is unset is left out. With an
// empty cfg.Provider the chain comes from ai.ChainFromEnv instead.
func buildAIChain(cfg config.AIConfig) (*ai.Chain, error) {
	if cfg.Provider == "" {
		return ai.ChainFromEnv()
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := ai.NewSharedHTTPClient(timeout)

	order := []string{cfg.Provider}
	for _, name := range cfg.FallbackOrder {
		if name != cfg.Provider {
			order = append(order, name)
		}
	}

	var providers []ai.Provider
	for _, name := range order {
		switch name {
		case "openrouter":
			if key := os.Getenv("AI_OPENROUTER_API_KEY"); key != "" {
				providers = append(providers, ai.NewOpenRouterProvider(httpClient, key, cfg.Model))
			}
		case "gemini":
			if key := os.Getenv("AI_GEMINI_API_KEY"); key != "" {
				providers = append(providers, ai.NewGeminiProvider(httpClient, key, cfg.Model))
			}
		case "noop":
			providers = append(providers, ai.NoopProvider{})
		default:
			return nil, fmt.Errorf("unknown ai provider %q", name)
		}
	}

	if len(providers) == 0 {
		providers = append(providers, ai.NoopProvider{})
	}
	return ai.NewChain(providers...)
}

// bridgingPublisher fans a publish out to the local Bus and the Redis
// bridge, so every process behind a load balancer sees every event. Inbound
// relay (events published by other processes reaching this process's own
// WebSocket clients) needs a RedisBridge.Relay call per itinerary/agent
// topic; since those topics are created dynamically per request rather than
// known up front, wiring that loop is left to a future per-topic hook on
// ConnectionManager's subscribe path rather than guessed at here.
type bridgingPublisher struct {
	bus    *events.Bus
	bridge *events.RedisBridge
}

func (p *bridgingPublisher) Publish(topic string, event any) {
	p.bus.Publish(topic, event)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.bridge.Publish(ctx, topic, event); err != nil {
		slog.Warn("redis bridge publish failed", "topic", topic, "error", err)
	}
}
