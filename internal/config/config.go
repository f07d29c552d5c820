// Package config loads service configuration from defaults, an optional YAML
// file and MUDRA_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ayusman/mudra/internal/detector"
)

// EnvPrefix is the prefix of environment variables read by Load.
// A double underscore separates nesting levels: MUDRA_SERVER__ADDR sets server.addr.
const EnvPrefix = "MUDRA_"

// Detector backends.
const (
	BackendMediaPipe = "mediapipe"
	BackendMock      = "mock"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Detector DetectorConfig `koanf:"detector"`
	Store    StoreConfig    `koanf:"store"`
	Cache    CacheConfig    `koanf:"cache"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	BodyLimit       string        `koanf:"body_limit"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// StreamChangeThreshold is the percentage of pixels that must change
	// between stream frames before the detector runs again. Zero disables it.
	StreamChangeThreshold float64 `koanf:"stream_change_threshold"`
}

type DetectorConfig struct {
	Backend               string        `koanf:"backend"`
	MaxHands              int           `koanf:"max_hands"`
	MinConfidence         float64       `koanf:"min_confidence"`
	MinTrackingConfidence float64       `koanf:"min_tracking_confidence"`
	StaticImageMode       bool          `koanf:"static_image_mode"`
	ScriptPath            string        `koanf:"script_path"`
	PythonPath            string        `koanf:"python_path"`
	IdleTimeout           time.Duration `koanf:"idle_timeout"`
}

// StoreConfig enables the gesture history when Path is set.
type StoreConfig struct {
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention"`
}

// CacheConfig enables the Redis response cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `koanf:"redis_addr"`
	TTL       time.Duration `koanf:"ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	d := detector.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:                  ":5000",
			BodyLimit:             "16M",
			ShutdownTimeout:       10 * time.Second,
			StreamChangeThreshold: 1.0,
		},
		Detector: DetectorConfig{
			Backend:               BackendMediaPipe,
			MaxHands:              d.MaxHands,
			MinConfidence:         d.MinConfidence,
			MinTrackingConfidence: d.MinTrackingConf,
			IdleTimeout:           d.IdleTimeout,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps MUDRA_DETECTOR__MAX_HANDS to detector.max_hands.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.StreamChangeThreshold < 0 || c.Server.StreamChangeThreshold > 100 {
		errs = append(errs, fmt.Errorf("server.stream_change_threshold must be in [0,100], got %v", c.Server.StreamChangeThreshold))
	}
	switch c.Detector.Backend {
	case BackendMediaPipe, BackendMock:
	default:
		errs = append(errs, fmt.Errorf("detector.backend %q is not one of %q, %q", c.Detector.Backend, BackendMediaPipe, BackendMock))
	}
	if c.Detector.MaxHands <= 0 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be positive, got %d", c.Detector.MaxHands))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence must be in [0,1], got %v", c.Detector.MinConfidence))
	}
	if c.Detector.MinTrackingConfidence < 0 || c.Detector.MinTrackingConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_tracking_confidence must be in [0,1], got %v", c.Detector.MinTrackingConfidence))
	}
	if c.Store.Retention < 0 {
		errs = append(errs, fmt.Errorf("store.retention must not be negative, got %v", c.Store.Retention))
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Options converts the detector section into detector settings.
func (d DetectorConfig) Options() detector.Config {
	return detector.Config{
		MaxHands:        d.MaxHands,
		MinConfidence:   d.MinConfidence,
		MinTrackingConf: d.MinTrackingConfidence,
		StaticImageMode: d.StaticImageMode,
		ScriptPath:      d.ScriptPath,
		PythonPath:      d.PythonPath,
		IdleTimeout:     d.IdleTimeout,
	}
}
