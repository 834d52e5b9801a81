// Package relay provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package relay

import (
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig defines the parameters for per-session inbound message
// rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration, populated from RELAY_* environment
// variables.
type Config struct {
	Port           string        `envconfig:"PORT" default:":8080"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	MaxMessageSize int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	SendQueueSize  int           `envconfig:"SEND_QUEUE_SIZE" default:"256"`
	RateBurst      int           `envconfig:"RATE_LIMIT_BURST" default:"60"`
	RateInterval   time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
}

// RateLimit returns the rate limiter parameters as a single value.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateBurst, RefillInterval: c.RateInterval}
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxMessageSize: 4096,
		SendQueueSize:  256,
		RateBurst:      60,
		RateInterval:   time.Second,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 60
	}
	if cfg.RateInterval <= 0 {
		cfg.RateInterval = time.Second
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to
// defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		sanitizeConfig(defaultConfig())
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfigFromEnv builds a Config from RELAY_* environment variables,
// falling back to defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("relay", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
