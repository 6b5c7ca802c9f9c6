// Package config loads and validates tollgate configuration from the environment
// and an optional config file using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/tollgate/adapters/tokenizer"
	"github.com/layer-3/tollgate/core"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "TOLLGATE"

// Session store backends
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	// JWTSecret is the HMAC signing secret; at least 32 bytes.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim written and required on every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTTTL is the absolute token lifetime (e.g. "15m"). There is no default.
	JWTTTL time.Duration `mapstructure:"JWT_TTL"`
	// JWTLeeway is the clock skew tolerated on expiry checks.
	JWTLeeway time.Duration `mapstructure:"JWT_LEEWAY"`

	// SessionStore selects the session backend: "redis" or "memory".
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SessionIdleTTL is the sliding idle timeout.
	SessionIdleTTL time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	// SessionKeyPrefix is prepended to the token ID to form the store key.
	SessionKeyPrefix string `mapstructure:"SESSION_KEY_PREFIX"`
	// SessionAtomicTouch selects EXPIRE-based touch; false uses GET then SET.
	SessionAtomicTouch bool `mapstructure:"SESSION_ATOMIC_TOUCH"`
	// StoreTimeout bounds every session store call.
	StoreTimeout time.Duration `mapstructure:"STORE_TIMEOUT"`

	// OpenPaths are path prefixes that bypass the authentication gate.
	OpenPaths []string `mapstructure:"OPEN_PATHS"`
	// Listen is the HTTP listen address.
	Listen string `mapstructure:"LISTEN"`
	// RedisURL locates the Redis server used for sessions and events.
	RedisURL string `mapstructure:"REDIS_URL"`

	// EventsEnabled publishes session lifecycle events to a Redis stream.
	EventsEnabled bool `mapstructure:"EVENTS_ENABLED"`
	// EventsTopic is the stream the events are published to.
	EventsTopic string `mapstructure:"EVENTS_TOPIC"`

	// UsersFile is a YAML user directory used for login.
	UsersFile string `mapstructure:"USERS_FILE"`
}

var requiredKeys = []string{"JWT_SECRET", "JWT_ISSUER", "JWT_TTL", "USERS_FILE"}

// Load builds Config from an optional config file and the environment.
// Environment variables override the file. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// keys without a default must be bound explicitly to reach Unmarshal
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault("JWT_LEEWAY", time.Duration(0))
	v.SetDefault("SESSION_STORE", StoreRedis)
	v.SetDefault("SESSION_IDLE_TTL", 600*time.Second)
	v.SetDefault("SESSION_KEY_PREFIX", "sess:")
	v.SetDefault("SESSION_ATOMIC_TOUCH", true)
	v.SetDefault("STORE_TIMEOUT", 250*time.Millisecond)
	v.SetDefault("OPEN_PATHS", []string{"/api/auth/", "/error"})
	v.SetDefault("LISTEN", ":9000")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("EVENTS_ENABLED", true)
	v.SetDefault("EVENTS_TOPIC", "tollgate.sessions")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.OpenPaths = cleanList(cfg.OpenPaths)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if err := c.Tokenizer().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("config: %w: %s_SESSION_IDLE_TTL must be positive", core.ErrInvalidConfig, EnvPrefix)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: %w: %s_STORE_TIMEOUT must be positive", core.ErrInvalidConfig, EnvPrefix)
	}
	switch c.SessionStore {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("config: %w: %s_SESSION_STORE must be %q or %q", core.ErrInvalidConfig, EnvPrefix, StoreRedis, StoreMemory)
	}
	if c.Listen == "" {
		return fmt.Errorf("config: %w: %s_LISTEN must be set", core.ErrInvalidConfig, EnvPrefix)
	}
	if c.UsersFile == "" {
		return fmt.Errorf("config: %w: %s_USERS_FILE must be set", core.ErrInvalidConfig, EnvPrefix)
	}
	return nil
}

// Tokenizer returns the token codec settings
func (c *Config) Tokenizer() tokenizer.Config {
	return tokenizer.Config{
		Secret: []byte(c.JWTSecret),
		Issuer: c.JWTIssuer,
		TTL:    c.JWTTTL,
		Leeway: c.JWTLeeway,
	}
}

// NeedsRedis reports whether any component talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.SessionStore == StoreRedis || c.EventsEnabled
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
