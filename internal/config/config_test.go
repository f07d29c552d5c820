package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "16M", cfg.Server.BodyLimit)
	assert.Equal(t, 1.0, cfg.Server.StreamChangeThreshold)
	assert.Equal(t, BackendMediaPipe, cfg.Detector.Backend)
	assert.Equal(t, 2, cfg.Detector.MaxHands)
	assert.Equal(t, 0.5, cfg.Detector.MinConfidence)
	assert.Equal(t, 0.5, cfg.Detector.MinTrackingConfidence)
	assert.False(t, cfg.Detector.StaticImageMode)
	assert.Empty(t, cfg.Store.Path)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  shutdown_timeout: 3s
  stream_change_threshold: 0
detector:
  backend: mock
  max_hands: 4
  min_confidence: 0.7
store:
  path: /tmp/history.db
  retention: 24h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Zero(t, cfg.Server.StreamChangeThreshold)
	assert.Equal(t, BackendMock, cfg.Detector.Backend)
	assert.Equal(t, 4, cfg.Detector.MaxHands)
	assert.Equal(t, 0.7, cfg.Detector.MinConfidence)
	assert.Equal(t, "/tmp/history.db", cfg.Store.Path)
	assert.Equal(t, 24*time.Hour, cfg.Store.Retention)

	// Keys missing from the file keep their defaults.
	assert.Equal(t, "16M", cfg.Server.BodyLimit)
	assert.Equal(t, 0.5, cfg.Detector.MinTrackingConfidence)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":8080\"\n")

	t.Setenv("MUDRA_SERVER__ADDR", ":9090")
	t.Setenv("MUDRA_DETECTOR__MAX_HANDS", "1")
	t.Setenv("MUDRA_DETECTOR__STATIC_IMAGE_MODE", "true")
	t.Setenv("MUDRA_CACHE__REDIS_ADDR", "localhost:6379")
	t.Setenv("MUDRA_CACHE__TTL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 1, cfg.Detector.MaxHands)
	assert.True(t, cfg.Detector.StaticImageMode)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Detector.Backend = "tflite" }, "detector.backend"},
		{"zero max hands", func(c *Config) { c.Detector.MaxHands = 0 }, "detector.max_hands"},
		{"confidence above one", func(c *Config) { c.Detector.MinConfidence = 1.5 }, "detector.min_confidence"},
		{"negative tracking confidence", func(c *Config) { c.Detector.MinTrackingConfidence = -0.1 }, "detector.min_tracking_confidence"},
		{"stream threshold above 100", func(c *Config) { c.Server.StreamChangeThreshold = 150 }, "server.stream_change_threshold"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"negative retention", func(c *Config) { c.Store.Retention = -time.Hour }, "store.retention"},
		{"cache without ttl", func(c *Config) { c.Cache.RedisAddr = "localhost:6379"; c.Cache.TTL = 0 }, "cache.ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		cfg := Default()
		assert.NoError(t, cfg.Validate())
	})
}

func TestDetectorConfig_Options(t *testing.T) {
	d := DetectorConfig{
		MaxHands:              1,
		MinConfidence:         0.6,
		MinTrackingConfidence: 0.4,
		StaticImageMode:       true,
		ScriptPath:            "/opt/mudra/mediapipe_service.py",
		IdleTimeout:           time.Minute,
	}

	opts := d.Options()

	assert.Equal(t, 1, opts.MaxHands)
	assert.Equal(t, 0.6, opts.MinConfidence)
	assert.Equal(t, 0.4, opts.MinTrackingConf)
	assert.True(t, opts.StaticImageMode)
	assert.Equal(t, "/opt/mudra/mediapipe_service.py", opts.ScriptPath)
	assert.Equal(t, time.Minute, opts.IdleTimeout)
}
