// Package config loads funnel settings from an optional .env file and FUNNEL_*
// environment variables. Command-line flags override what is loaded here.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvAddr          = "FUNNEL_ADDR"
	EnvStateDir      = "FUNNEL_STATE_DIR"
	EnvDeviceStore   = "FUNNEL_DEVICE_STORE"
	EnvRedisURL      = "FUNNEL_REDIS_URL"
	EnvSessionStore  = "FUNNEL_SESSION_STORE"
	EnvSessionDSN    = "FUNNEL_SESSION_DSN"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvRemoteURL     = "FUNNEL_REMOTE_URL"
	EnvCatalog       = "FUNNEL_CATALOG"
	EnvCheckoutURL   = "FUNNEL_CHECKOUT_URL"
	EnvEncryptionKey = "FUNNEL_ENCRYPTION_KEY"
	EnvPIIPatterns   = "FUNNEL_PII_PATTERNS"
	EnvMetrics       = "FUNNEL_METRICS"
	EnvLogLevel      = "FUNNEL_LOG_LEVEL"
	EnvLogJSON       = "FUNNEL_LOG_JSON"
	EnvLockTTL       = "FUNNEL_LOCK_TTL"
	EnvMaxCached     = "FUNNEL_MAX_CACHED"
	EnvSyncTimeout   = "FUNNEL_SYNC_TIMEOUT"
)

// Device store backends.
const (
	DeviceMemory = "memory"
	DeviceFile   = "file"
	DeviceRedis  = "redis"
)

// Session store backends.
const (
	SessionNone   = "none"
	SessionMemory = "memory"
	SessionSQL    = "sql"
	SessionRemote = "remote"
)

// Defaults.
const (
	DefaultAddr        = ":8080"
	DefaultStateDir    = ".funnel"
	DefaultLockTTL     = 30 * time.Second
	DefaultMaxCached   = 1024
	DefaultSyncTimeout = 10 * time.Second
	DefaultDBFileName  = "sessions.db"
)

// Config holds the runtime configuration of the server and the CLI.
type Config struct {
	Addr     string
	StateDir string

	DeviceStore string
	RedisURL    string

	SessionStore string
	SessionDSN   string
	RemoteURL    string

	CatalogPath   string
	CheckoutURL   string
	EncryptionKey string
	PIIPatterns   []string

	Metrics  bool
	LogLevel string
	LogJSON  bool

	LockTTL     time.Duration
	MaxCached   int
	SyncTimeout time.Duration
}

// Load reads the given .env files (or ./.env when none is given) and then the
// environment. A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from the current environment, filling defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:          stringEnv(EnvAddr, DefaultAddr),
		StateDir:      stringEnv(EnvStateDir, DefaultStateDir),
		DeviceStore:   stringEnv(EnvDeviceStore, DeviceFile),
		RedisURL:      stringEnv(EnvRedisURL, ""),
		SessionStore:  stringEnv(EnvSessionStore, SessionSQL),
		SessionDSN:    stringEnv(EnvSessionDSN, stringEnv(EnvDatabaseURL, "")),
		RemoteURL:     stringEnv(EnvRemoteURL, ""),
		CatalogPath:   stringEnv(EnvCatalog, ""),
		CheckoutURL:   stringEnv(EnvCheckoutURL, ""),
		EncryptionKey: stringEnv(EnvEncryptionKey, ""),
		PIIPatterns:   ParseListEnv(EnvPIIPatterns, nil),
		Metrics:       ParseBoolEnv(EnvMetrics, true),
		LogLevel:      stringEnv(EnvLogLevel, "info"),
		LogJSON:       ParseBoolEnv(EnvLogJSON, false),
		LockTTL:       ParseDurationEnv(EnvLockTTL, DefaultLockTTL),
		MaxCached:     ParseIntEnv(EnvMaxCached, DefaultMaxCached),
		SyncTimeout:   ParseDurationEnv(EnvSyncTimeout, DefaultSyncTimeout),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if cfg.SessionStore == SessionSQL && cfg.SessionDSN == "" {
		cfg.SessionDSN = filepath.Join(cfg.StateDir, DefaultDBFileName)
	}
	return cfg
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.DeviceStore {
	case DeviceMemory, DeviceFile:
	case DeviceRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%s=redis requires %s", EnvDeviceStore, EnvRedisURL)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvDeviceStore, c.DeviceStore)
	}

	switch c.SessionStore {
	case SessionNone, SessionMemory:
	case SessionSQL:
		if c.SessionDSN == "" {
			return fmt.Errorf("%s=sql requires %s", EnvSessionStore, EnvSessionDSN)
		}
	case SessionRemote:
		if c.RemoteURL == "" {
			return fmt.Errorf("%s=remote requires %s", EnvSessionStore, EnvRemoteURL)
		}
	default:
		return fmt.Errorf("unknown %s %q", EnvSessionStore, c.SessionStore)
	}

	for _, p := range c.PIIPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid %s pattern %q: %w", EnvPIIPatterns, p, err)
		}
	}
	return nil
}

// DevicesDir is where the file device store keeps one JSON file per device.
func (c Config) DevicesDir() string {
	return filepath.Join(c.StateDir, "devices")
}

// SetStateDir moves the state directory, carrying the default SQLite DSN along.
func (c *Config) SetStateDir(dir string) {
	if c.SessionStore == SessionSQL && c.SessionDSN == filepath.Join(c.StateDir, DefaultDBFileName) {
		c.SessionDSN = filepath.Join(dir, DefaultDBFileName)
	}
	c.StateDir = dir
}
