// Package config provides YAML-based configuration loading for cockpit.
//
// A config file is optional. Environment variables override file values so
// the service can run from env alone in containers.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level cockpit configuration, loaded from cockpit.yaml.
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	LLM         LLMConfig       `yaml:"llm"`
	Cache       CacheConfig     `yaml:"cache"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Agents      AgentsConfig    `yaml:"agents"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Log         LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig selects the backing store. DSN wins over the split fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// AuthConfig controls bearer-token resolution.
type AuthConfig struct {
	DefaultUserID int64  `yaml:"default_user_id"`
	UserInfoURL   string `yaml:"user_info_url"`
	APIKey        string `yaml:"api_key"`
	LinksTable    string `yaml:"links_table"`
	ClientURL     string `yaml:"client_url"`
	ClientKey     string `yaml:"client_key"`
}

// LLMConfig configures the insight generator's model.
type LLMConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// CacheConfig configures the per-user snapshot cache.
type CacheConfig struct {
	TTLMS int `yaml:"ttl_ms"`
	Size  int `yaml:"size"`
}

// RateLimitConfig configures the mutation limiter.
type RateLimitConfig struct {
	WindowMS int `yaml:"window_ms"`
	Limit    int `yaml:"limit"`
}

// AgentsConfig locates the agent profile directory.
type AgentsConfig struct {
	Dir string `yaml:"dir"`
}

// TelemetryConfig toggles OpenTelemetry export.
type TelemetryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Stdout          bool   `yaml:"stdout"`
	MetricsEndpoint string `yaml:"metrics_endpoint"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults.
const (
	DefaultPort       = 3000
	DefaultTimezone   = "Europe/Warsaw"
	DefaultModel      = "meta/llama-3.1-405b-instruct"
	DefaultLLMBaseURL = "https://integrate.api.nvidia.com/v1"
	DefaultLinksTable = "app_user_links"
	DefaultAgentsDir  = "data/agents"
	minLLMTimeout     = 3 * time.Second
)

// Load reads path (a missing file is not an error), overlays environment
// variables and returns a validated Config.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg.applyEnv(newEnv())
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse unmarshals YAML bytes into a validated Config without consulting the
// environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newEnv binds every supported variable. The first name listed wins.
func newEnv() *viper.Viper {
	v := viper.New()
	bind := func(key string, names ...string) {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	bind("environment", "APP_ENV", "NODE_ENV")
	bind("port", "PORT")
	bind("timezone", "DASHBOARD_TIMEZONE", "HABITS_PLANNER_TIMEZONE")
	bind("db.driver", "DATABASE_DRIVER")
	bind("db.dsn", "DATABASE_URL")
	bind("auth.user", "APP_USER_ID", "ALLOWED_USER_ID")
	bind("auth.url", "AUTH_USER_INFO_URL")
	bind("auth.key", "AUTH_API_KEY", "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ANON_KEY")
	bind("auth.base", "SUPABASE_URL")
	bind("auth.links", "APP_USER_LINKS_TABLE")
	bind("auth.client_url", "VITE_SUPABASE_URL", "SUPABASE_URL")
	bind("auth.client_key", "VITE_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY")
	bind("llm.enabled", "DASHBOARD_LLM_ENABLED")
	bind("llm.provider", "DASHBOARD_LLM_PROVIDER")
	bind("llm.key", "DASHBOARD_LLM_API_KEY", "NVIDIA_API_KEY", "ANTHROPIC_API_KEY")
	bind("llm.base_url", "DASHBOARD_LLM_BASE_URL")
	bind("llm.model", "DASHBOARD_LLM_MODEL", "NVIDIA_MODEL")
	bind("llm.timeout", "DASHBOARD_LLM_TIMEOUT_MS")
	bind("cache.ttl", "DASHBOARD_CACHE_TTL_MS")
	bind("rate.window", "MUTATION_WINDOW_MS")
	bind("rate.limit", "MUTATION_LIMIT")
	bind("agents.dir", "PREDEFINED_AGENTS_DIR")
	bind("otel.enabled", "COCKPIT_OTEL_ENABLED")
	bind("otel.stdout", "COCKPIT_OTEL_STDOUT")
	bind("otel.endpoint", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	bind("log.level", "LOG_LEVEL")
	return v
}

// applyEnv overlays bound environment variables onto the file values.
func (c *Config) applyEnv(v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	setString("environment", &c.Environment)
	setInt("port", &c.Server.Port)
	setString("timezone", &c.Server.Timezone)
	setString("db.driver", &c.Database.Driver)
	setString("db.dsn", &c.Database.DSN)
	if v.IsSet("auth.user") {
		c.Auth.DefaultUserID = v.GetInt64("auth.user")
	}
	setString("auth.url", &c.Auth.UserInfoURL)
	if c.Auth.UserInfoURL == "" && v.IsSet("auth.base") {
		c.Auth.UserInfoURL = strings.TrimRight(v.GetString("auth.base"), "/") + "/auth/v1/user"
	}
	setString("auth.key", &c.Auth.APIKey)
	setString("auth.links", &c.Auth.LinksTable)
	setString("auth.client_url", &c.Auth.ClientURL)
	setString("auth.client_key", &c.Auth.ClientKey)
	if v.IsSet("llm.enabled") {
		enabled := !strings.EqualFold(strings.TrimSpace(v.GetString("llm.enabled")), "false")
		c.LLM.Enabled = &enabled
	}
	setString("llm.provider", &c.LLM.Provider)
	setString("llm.key", &c.LLM.APIKey)
	setString("llm.base_url", &c.LLM.BaseURL)
	setString("llm.model", &c.LLM.Model)
	setInt("llm.timeout", &c.LLM.TimeoutMS)
	setInt("cache.ttl", &c.Cache.TTLMS)
	setInt("rate.window", &c.RateLimit.WindowMS)
	setInt("rate.limit", &c.RateLimit.Limit)
	setString("agents.dir", &c.Agents.Dir)
	if v.IsSet("otel.enabled") {
		c.Telemetry.Enabled = v.GetBool("otel.enabled")
	}
	if v.IsSet("otel.stdout") {
		c.Telemetry.Stdout = v.GetBool("otel.stdout")
	}
	setString("otel.endpoint", &c.Telemetry.MetricsEndpoint)
	setString("log.level", &c.Log.Level)
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = DefaultTimezone
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "cockpit.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Auth.DefaultUserID == 0 {
		c.Auth.DefaultUserID = 1
	}
	if c.Auth.LinksTable == "" {
		c.Auth.LinksTable = DefaultLinksTable
	}
	if c.LLM.Enabled == nil {
		enabled := true
		c.LLM.Enabled = &enabled
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Provider == ProviderOpenAI && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.TimeoutMS == 0 {
		c.LLM.TimeoutMS = 15000
	}
	if c.Cache.TTLMS == 0 {
		c.Cache.TTLMS = 10000
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 256
	}
	if c.RateLimit.WindowMS == 0 {
		c.RateLimit.WindowMS = 60000
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 60
	}
	if c.Agents.Dir == "" {
		c.Agents.Dir = DefaultAgentsDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "":
		errs = append(errs, "database.driver is required")
	case "mysql":
		if c.Database.DSN == "" && c.Database.Name == "" {
			errs = append(errs, "database.dsn or database.name is required for mysql")
		}
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for postgres")
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("server.timezone %q: %v", c.Server.Timezone, err))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderAnthropic {
		errs = append(errs, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.Cache.TTLMS < 0 {
		errs = append(errs, "cache.ttl_ms must not be negative")
	}
	if c.RateLimit.WindowMS < 0 || c.RateLimit.Limit < 0 {
		errs = append(errs, "rate_limit values must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location returns the dashboard zone. validate already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LLMEnabled reports whether insight generation may call a model.
func (c *Config) LLMEnabled() bool {
	return c.LLM.Enabled != nil && *c.LLM.Enabled && c.LLM.APIKey != ""
}

// LLMTimeout returns the model call deadline, never below three seconds.
func (c *Config) LLMTimeout() time.Duration {
	d := time.Duration(c.LLM.TimeoutMS) * time.Millisecond
	if d < minLLMTimeout {
		return minLLMTimeout
	}
	return d
}

// CacheTTL returns the snapshot cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMS) * time.Millisecond
}

// RateWindow returns the mutation limiter window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMS) * time.Millisecond
}
