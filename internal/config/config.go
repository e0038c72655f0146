package config

// Config is the root Senja configuration.
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Provider
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// Agent
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Rate limiting
	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`

	// Sessions
	Session SessionConfig `json:"session" mapstructure:"session"`

	// RBAC
	RBAC RBACConfig `json:"rbac" mapstructure:"rbac"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Name      string `json:"name" mapstructure:"name"` // anthropic, openai
	APIKey    string `json:"api_key" mapstructure:"api_key"`
	Model     string `json:"model" mapstructure:"model"`
	MaxTokens int    `json:"max_tokens" mapstructure:"max_tokens"`
}

// AgentConfig holds loop configuration.
type AgentConfig struct {
	SystemPrompt       string `json:"system_prompt" mapstructure:"system_prompt"`
	MaxIterations      int    `json:"max_iterations" mapstructure:"max_iterations"`
	ToolTimeoutSeconds int    `json:"tool_timeout_seconds" mapstructure:"tool_timeout_seconds"`
}

// RateLimitConfig holds admission-control configuration.
type RateLimitConfig struct {
	RPM   int `json:"rpm" mapstructure:"rpm"`
	Burst int `json:"burst" mapstructure:"burst"`
}

// SessionConfig holds session store configuration.
type SessionConfig struct {
	Backend              string `json:"backend" mapstructure:"backend"` // memory, redis
	RedisAddr            string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword        string `json:"redis_password" mapstructure:"redis_password"`
	TTLMinutes           int    `json:"ttl_minutes" mapstructure:"ttl_minutes"`
	SweepIntervalMinutes int    `json:"sweep_interval_minutes" mapstructure:"sweep_interval_minutes"`
}

// RBACConfig holds role-based tool visibility configuration. RoleTools is
// the raw role→tools JSON; it is parsed exactly once at startup and malformed
// input aborts boot.
type RBACConfig struct {
	RoleTools   string            `json:"role_tools" mapstructure:"role_tools"`
	DefaultRole string            `json:"default_role" mapstructure:"default_role"`
	AuthTokens  map[string]string `json:"auth_tokens" mapstructure:"auth_tokens"` // bearer token -> role
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Provider: ProviderConfig{
			Name:      "anthropic",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 4096,
		},
		Agent: AgentConfig{
			SystemPrompt:       "You are a helpful assistant.",
			MaxIterations:      10,
			ToolTimeoutSeconds: 30,
		},
		RateLimit: RateLimitConfig{
			RPM:   60,
			Burst: 10,
		},
		Session: SessionConfig{
			Backend:              "memory",
			RedisAddr:            "127.0.0.1:6379",
			TTLMinutes:           30,
			SweepIntervalMinutes: 5,
		},
		RBAC: RBACConfig{
			DefaultRole: "user",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}
