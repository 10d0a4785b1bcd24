package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Weynie/van-construction-web-sub000/pkg/log"
)

// Backend modes
const (
	BackendHTTP  = "http"
	BackendLocal = "local"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "VCW_"

// Config is the full runtime configuration of vcw
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// BackendConfig selects and configures the gateway
type BackendConfig struct {
	Mode           string        `yaml:"mode"`
	URL            string        `yaml:"url"`
	Token          string        `yaml:"token"`
	DataDir        string        `yaml:"dataDir"`
	MaxRetries     int           `yaml:"maxRetries"`
	HealthInterval time.Duration `yaml:"healthInterval"`
	HealthRetries  int           `yaml:"healthRetries"`
}

// SyncConfig tunes the engine
type SyncConfig struct {
	DebounceWindow    time.Duration `yaml:"debounceWindow"`
	CommitTimeout     time.Duration `yaml:"commitTimeout"`
	RequireEncryption bool          `yaml:"requireEncryption"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// BridgeConfig configures the local UI bridge
type BridgeConfig struct {
	Addr            string        `yaml:"addr"`
	MetricsInterval time.Duration `yaml:"metricsInterval"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
	AllowedNetworks []string      `yaml:"allowedNetworks"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Mode:           BackendHTTP,
			URL:            "http://localhost:8080",
			DataDir:        "./vcw-data",
			MaxRetries:     3,
			HealthInterval: 30 * time.Second,
			HealthRetries:  3,
		},
		Sync: SyncConfig{
			DebounceWindow: time.Second,
			CommitTimeout:  15 * time.Second,
		},
		Log: LogConfig{
			Level: string(log.InfoLevel),
		},
		Bridge: BridgeConfig{
			Addr:            "127.0.0.1:7420",
			MetricsInterval: 15 * time.Second,
			RateLimit:       50,
			RateBurst:       100,
		},
	}
}

// Load reads path over the defaults, applies VCW_* environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from VCW_* environment variables. Malformed
// values are errors rather than silently ignored.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("BACKEND", &c.Backend.Mode)
	str("API_URL", &c.Backend.URL)
	str("TOKEN", &c.Backend.Token)
	str("DATA_DIR", &c.Backend.DataDir)
	integer("MAX_RETRIES", &c.Backend.MaxRetries)
	dur("HEALTH_INTERVAL", &c.Backend.HealthInterval)
	integer("HEALTH_RETRIES", &c.Backend.HealthRetries)
	dur("DEBOUNCE", &c.Sync.DebounceWindow)
	dur("COMMIT_TIMEOUT", &c.Sync.CommitTimeout)
	boolean("REQUIRE_ENCRYPTION", &c.Sync.RequireEncryption)
	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_JSON", &c.Log.JSON)
	str("BRIDGE_ADDR", &c.Bridge.Addr)

	return errors.Join(errs...)
}

// Validate checks the configuration for values the runtime cannot use
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend.Mode {
	case BackendHTTP:
		u, err := url.Parse(c.Backend.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend.url %q is not an absolute URL", c.Backend.URL))
		}
	case BackendLocal:
		if strings.TrimSpace(c.Backend.DataDir) == "" {
			errs = append(errs, errors.New("backend.dataDir is required for the local backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.mode must be %q or %q, got %q", BackendHTTP, BackendLocal, c.Backend.Mode))
	}
	if c.Backend.MaxRetries < 0 {
		errs = append(errs, errors.New("backend.maxRetries must not be negative"))
	}
	if c.Backend.HealthRetries < 1 {
		errs = append(errs, errors.New("backend.healthRetries must be at least 1"))
	}
	if c.Sync.DebounceWindow <= 0 {
		errs = append(errs, errors.New("sync.debounceWindow must be positive"))
	}
	if c.Sync.CommitTimeout <= 0 {
		errs = append(errs, errors.New("sync.commitTimeout must be positive"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if strings.TrimSpace(c.Bridge.Addr) == "" {
		errs = append(errs, errors.New("bridge.addr is required"))
	}
	if c.Bridge.RateLimit < 0 {
		errs = append(errs, errors.New("bridge.rateLimit must not be negative"))
	}
	for _, n := range c.Bridge.AllowedNetworks {
		if _, _, err := net.ParseCIDR(n); err != nil && net.ParseIP(n) == nil {
			errs = append(errs, fmt.Errorf("bridge.allowedNetworks entry %q is not an address or CIDR", n))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoggerConfig converts the logging section for log.Init
func (c *Config) LoggerConfig() log.Config {
	return log.Config{
		Level:      log.Level(c.Log.Level),
		JSONOutput: c.Log.JSON,
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
