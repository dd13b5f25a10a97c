// Package config loads the csrfdemo server configuration from an optional
// file and CSRFDEMO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`

	// CSRF keeps the loose option map accepted by csrf.ConfigFromMap.
	CSRF map[string]any `mapstructure:"csrf"`

	CSRFEnforce bool `mapstructure:"csrf_enforce"`

	Session struct {
		Backend      string        `mapstructure:"backend"` // memory | redis
		Lifetime     time.Duration `mapstructure:"lifetime"`     // absolute, from creation
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"` // 0 disables
		CookieSecure bool          `mapstructure:"cookie_secure"`
		MemorySize   int           `mapstructure:"memory_size"`
	} `mapstructure:"session"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("csrf.expire", 3600)
	v.SetDefault("csrf.tokenLength", 32)
	v.SetDefault("csrf_enforce", false)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.lifetime", "24h")
	v.SetDefault("session.idle_timeout", "2h")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.memory_size", 10000)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
}

// Load reads path when non-empty, then applies environment overrides such
// as CSRFDEMO_SESSION_BACKEND=redis.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CSRFDEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Unmarshal lowercases map keys and skips env overrides inside maps
	cfg.CSRF = map[string]any{
		"expire":      v.Get("csrf.expire"),
		"tokenLength": v.Get("csrf.tokenLength"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("session.lifetime must be positive")
	}
	if c.Session.IdleTimeout < 0 {
		return errors.New("session.idle_timeout must not be negative")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}
