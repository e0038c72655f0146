package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/senja/internal/config"
	"github.com/harun/senja/internal/logger"
	"github.com/harun/senja/internal/tracing"
	"github.com/harun/senja/pkg/agent"
	"github.com/harun/senja/pkg/coretools"
	"github.com/harun/senja/pkg/gateway"
	"github.com/harun/senja/pkg/ratelimit"
	"github.com/harun/senja/pkg/rbac"
	"github.com/harun/senja/pkg/session"
	"github.com/harun/senja/pkg/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Senja gateway server",
	Long: `Run the Senja gateway server in the foreground. The server exposes
POST /v1/chat, a websocket streaming variant, a health check, and Prometheus
metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()

	if err := tracing.Init("senja"); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer tracing.Shutdown(ctx)

	// Malformed role config is a boot failure, not a runtime warning.
	roleConfig, err := rbac.ParseRoleToolConfig(cfg.RBAC.RoleTools)
	if err != nil {
		return fmt.Errorf("invalid rbac role config: %w", err)
	}

	registry := tools.NewRegistry()
	if err := coretools.Register(registry, coretools.Options{}); err != nil {
		return fmt.Errorf("failed to register core tools: %w", err)
	}

	client, err := agent.NewClient(agent.ClientConfig{
		Provider:  cfg.Provider.Name,
		APIKey:    cfg.Provider.APIKey,
		Model:     cfg.Provider.Model,
		MaxTokens: cfg.Provider.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to build provider client: %w", err)
	}

	ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	sweepInterval := time.Duration(cfg.Session.SweepIntervalMinutes) * time.Minute

	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Session.RedisAddr, err)
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, ttl)
	default:
		store = session.NewMemoryStore()
	}

	sweeper := session.NewSweeper(store, ttl, sweepInterval)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	defer sweeper.Stop()

	limiter := ratelimit.NewLimiter(cfg.RateLimit.RPM, cfg.RateLimit.Burst)

	// Elapsed windows are dead weight; drop them once per window.
	pruneTicker := time.NewTicker(ratelimit.Window)
	defer pruneTicker.Stop()
	go func() {
		for range pruneTicker.C {
			limiter.Prune()
		}
	}()

	srv, err := gateway.NewServer(gateway.ServerOptions{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
		ToolTimeout:   time.Duration(cfg.Agent.ToolTimeoutSeconds) * time.Second,
		AuthTokens:    cfg.RBAC.AuthTokens,
		DefaultRole:   cfg.RBAC.DefaultRole,
	}, gateway.Dependencies{
		Client:     client,
		Registry:   registry,
		Sessions:   store,
		Limiter:    limiter,
		KeyFunc:    ratelimit.DefaultKeyFunc,
		RoleConfig: roleConfig,
		Logger:     lg.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to build gateway server: %w", err)
	}

	log.Info().
		Str("provider", cfg.Provider.Name).
		Str("model", cfg.Provider.Model).
		Str("session_backend", cfg.Session.Backend).
		Int("tools", registry.Len()).
		Msg("Senja configured")

	// Stop on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		if err := srv.Stop(); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	return srv.Start()
}
