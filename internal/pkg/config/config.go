package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Upstream UpstreamConfig
	Session  SessionConfig
	Redis    RedisConfig
	Mongo    MongoConfig
}

// UpstreamConfig locates the document-management backend the gateway
// fronts. Endpoint paths default to the backend's published routes.
type UpstreamConfig struct {
	BaseURL string        `env:"UPSTREAM_BASE_URL, default=http://localhost:8000"`
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT,  default=30s"`

	LoginPath   string `env:"UPSTREAM_LOGIN_PATH,   default=/auth/login"`
	RefreshPath string `env:"UPSTREAM_REFRESH_PATH, default=/auth/refresh"`

	// RequiredUserType is the only user_type value allowed to hold an admin
	// session. The default is the value the upstream returns for management
	// accounts.
	RequiredUserType string `env:"UPSTREAM_REQUIRED_USER_TYPE, default=Cán bộ quản lý"`
}

// SessionConfig tunes the silent-renewal loop. ExpiryMargin must exceed
// CheckInterval so a token is always refreshed at least one full check
// before it actually expires.
type SessionConfig struct {
	CheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL, default=60s"`
	ExpiryMargin  time.Duration `env:"SESSION_EXPIRY_MARGIN,  default=120s"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=docuchat_admin"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	if cfg.Session.ExpiryMargin <= cfg.Session.CheckInterval {
		cfg.Session.ExpiryMargin = 2 * cfg.Session.CheckInterval
	}
	return &cfg
}
