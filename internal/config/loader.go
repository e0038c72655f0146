package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file path (JSON), falling back to
// the default search path, then overlays SENJA_* environment variables.
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("senja")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".senja"))
		}
	}

	v.SetEnvPrefix("SENJA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)

	v.SetDefault("provider.name", def.Provider.Name)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", def.Provider.Model)
	v.SetDefault("provider.max_tokens", def.Provider.MaxTokens)

	v.SetDefault("agent.system_prompt", def.Agent.SystemPrompt)
	v.SetDefault("agent.max_iterations", def.Agent.MaxIterations)
	v.SetDefault("agent.tool_timeout_seconds", def.Agent.ToolTimeoutSeconds)

	v.SetDefault("rate_limit.rpm", def.RateLimit.RPM)
	v.SetDefault("rate_limit.burst", def.RateLimit.Burst)

	v.SetDefault("session.backend", def.Session.Backend)
	v.SetDefault("session.redis_addr", def.Session.RedisAddr)
	v.SetDefault("session.redis_password", "")
	v.SetDefault("session.ttl_minutes", def.Session.TTLMinutes)
	v.SetDefault("session.sweep_interval_minutes", def.Session.SweepIntervalMinutes)

	v.SetDefault("rbac.role_tools", "")
	v.SetDefault("rbac.default_role", def.RBAC.DefaultRole)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.console", def.Logging.Console)
	v.SetDefault("logging.pretty", def.Logging.Pretty)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	switch cfg.Provider.Name {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported provider: %s", cfg.Provider.Name)
	}

	switch cfg.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported session backend: %s", cfg.Session.Backend)
	}

	if cfg.RateLimit.RPM < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must be non-negative")
	}

	if cfg.Agent.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}

	return nil
}
