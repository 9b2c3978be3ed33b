// Package config loads pitchpilot settings from a YAML or JSON file overlaid
// with PITCHPILOT_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/persistence/middleware"
)

// DefaultPath is read when no explicit config file is given.
const DefaultPath = "pitchpilot.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PITCHPILOT_"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Deploy   DeployConfig   `mapstructure:"deploy"`
	Store    StoreConfig    `mapstructure:"store"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	// Theme is forwarded with every generation request of new sessions.
	Theme *domain.Theme `mapstructure:"theme"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PlaybackConfig struct {
	ChunkSize  int           `mapstructure:"chunk_size"`
	EntryPoint string        `mapstructure:"entry_point"`
	Interval   time.Duration `mapstructure:"interval"`
}

type DeployConfig struct {
	AllowRedeploy bool `mapstructure:"allow_redeploy"`
}

type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Path   string      `mapstructure:"path"`
	Redis  RedisConfig `mapstructure:"redis"`
	// Lock enables the Redis distributed lock around snapshot writes.
	Lock    bool          `mapstructure:"lock"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// EncryptionKey seals stored snapshots with AES-256-GCM (base64, 32 bytes).
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys still open snapshots sealed before a key rotation.
	FallbackKeys []string `mapstructure:"fallback_keys"`
	// Redact lists patterns masked in drafts and errors before storing.
	Redact []string `mapstructure:"redact"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     "http://localhost:5000",
			Timeout: 5 * time.Minute,
		},
		Playback: PlaybackConfig{
			ChunkSize:  domain.DefaultChunkSize,
			EntryPoint: domain.DefaultEntryPoint,
		},
		Store: StoreConfig{
			Driver:  DriverMemory,
			Redis:   RedisConfig{Addr: "localhost:6379"},
			LockTTL: 30 * time.Second,
		},
		HTTP:    HTTPConfig{Port: 8080},
		Metrics: MetricsConfig{Path: "/metrics"},
		Log:     LogConfig{Level: "info"},
	}
}

// envKeys maps environment suffixes to config paths.
var envKeys = map[string]string{
	"BACKEND_URL":           "backend.url",
	"BACKEND_TIMEOUT":       "backend.timeout",
	"PLAYBACK_CHUNK_SIZE":   "playback.chunk_size",
	"PLAYBACK_ENTRY_POINT":  "playback.entry_point",
	"PLAYBACK_INTERVAL":     "playback.interval",
	"DEPLOY_ALLOW_REDEPLOY": "deploy.allow_redeploy",
	"STORE_DRIVER":          "store.driver",
	"STORE_PATH":            "store.path",
	"STORE_LOCK":            "store.lock",
	"STORE_LOCK_TTL":        "store.lock_ttl",
	"STORE_ENCRYPTION_KEY":  "store.encryption_key",
	"REDIS_ADDR":            "store.redis.addr",
	"REDIS_PASSWORD":        "store.redis.password",
	"REDIS_DB":              "store.redis.db",
	"REDIS_PREFIX":          "store.redis.prefix",
	"REDIS_TTL":             "store.redis.ttl",
	"HTTP_PORT":             "http.port",
	"METRICS_ENABLED":       "metrics.enabled",
	"METRICS_PATH":          "metrics.path",
	"LOG_LEVEL":             "log.level",
	"THEME":                 "theme.name",
}

// Load reads path (or DefaultPath when empty), applies environment overrides
// and validates the result. A missing DefaultPath yields the defaults; a
// missing explicit path is an error.
func Load(path string) (*Config, error) {
	raw := map[string]any{}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if raw, err = parse(path, data); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(raw, os.Environ())

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(path string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// applyEnv overlays PITCHPILOT_* variables onto raw.
func applyEnv(raw map[string]any, environ []string) {
	sort.Strings(environ)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if path, known := envKeys[strings.TrimPrefix(key, EnvPrefix)]; known {
			setPath(raw, strings.Split(path, "."), value)
		}
	}
}

func setPath(m map[string]any, keys []string, value any) {
	for _, k := range keys[:len(keys)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverRedis, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	for _, k := range c.Store.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.fallback_keys: %w", err))
		}
	}
	for _, p := range c.Store.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("store.redact: %w", err))
		}
	}
	if c.Playback.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("playback.chunk_size: must be positive, got %d", c.Playback.ChunkSize))
	}
	if c.Playback.Interval < 0 {
		errs = append(errs, fmt.Errorf("playback.interval: must not be negative"))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port: out of range: %d", c.HTTP.Port))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}
