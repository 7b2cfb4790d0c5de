// Package relay provides configuration helpers that define runtime defaults,
// validation, and liveness parameters for the relay server.
package relay

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimitConfig defines the parameters for per-connection frame rate
// limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay server settings, including the liveness supervisor
// tunables and security controls.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxMessageSize int64
	SendBuffer     int
	RateLimit      RateLimitConfig

	// StaleThreshold is the maximum silence before a connection is presumed
	// dead; SweepInterval is how often the supervisor checks.
	StaleThreshold time.Duration
	SweepInterval  time.Duration
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool

	// cfgLog covers logging that happens outside any hub, such as origin
	// validation while a configuration is applied.
	cfgLog = zerolog.Nop()
)

func init() {
	SetConfig(nil)
}

// SetLogger routes the package's configuration-time logging. Call it before
// SetConfig so invalid settings are reported.
func SetLogger(logger zerolog.Logger) {
	cfgLog = logger
}

func defaultConfig() Config {
	return Config{
		Addr: ":3001",
		AllowedOrigins: []string{
			"http://localhost:3000",
		},
		MaxMessageSize: 4096,
		SendBuffer:     256,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		StaleThreshold: 5 * time.Minute,
		SweepInterval:  time.Minute,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":3001"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
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
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Addr:           cfg.Addr,
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimit.Burst,
			RefillInterval: cfg.RateLimit.RefillInterval,
		},
		StaleThreshold: cfg.StaleThreshold,
		SweepInterval:  cfg.SweepInterval,
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults for anything unset.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("WS_PORT"); port != "" {
		cfg.Addr = normalizeAddr(port)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}
	if threshold := os.Getenv("STALE_THRESHOLD"); threshold != "" {
		cfg.StaleThreshold = parseSeconds(threshold, cfg.StaleThreshold)
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		cfg.SweepInterval = parseSeconds(interval, cfg.SweepInterval)
	}

	return &cfg
}

// normalizeAddr accepts either a bare port ("3001", matching the original
// WS_PORT contract) or a listen address (":3001", "0.0.0.0:3001").
func normalizeAddr(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if !strings.Contains(value, ":") {
		return ":" + value
	}
	return value
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
