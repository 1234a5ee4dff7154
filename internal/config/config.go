// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/adpod/internal/validate"
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string

	Manifest  ManifestConfig
	Content   ContentConfig
	Sequencer SequencerConfig
	Renderer  RendererConfig
	Player    PlayerConfig
	Progress  ProgressConfig
	API       APIConfig
}

// ManifestConfig locates the ad break manifest.
type ManifestConfig struct {
	Path  string
	Watch bool
}

// ContentConfig describes the main content stream.
type ContentConfig struct {
	URL      string
	Duration time.Duration
}

// SequencerConfig holds the break sequencing policy.
type SequencerConfig struct {
	Tolerance          time.Duration
	SeekGuard          time.Duration
	FailsafeMultiplier float64
}

// RendererConfig configures the interactive renderer.
type RendererConfig struct {
	SupportsUserCancelStream bool
	Script                   string
	StepDelay                time.Duration
	AdvertisingID            string
}

// PlayerConfig drives the simulated player.
type PlayerConfig struct {
	Tick  time.Duration
	Speed float64
}

// ProgressConfig selects where watched breaks are remembered.
type ProgressConfig struct {
	Backend       string
	TTL           time.Duration
	Session       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BadgerDir     string
}

// APIConfig configures the status API. An empty Listen disables it.
type APIConfig struct {
	Listen     string
	RateLimit  int
	RateWindow time.Duration
}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults,
// then validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	l.setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := l.mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	// 4. Version from binary
	cfg.Version = l.version

	// 5. Relative manifest paths resolve against the config file
	if cfg.Manifest.Path != "" && !filepath.IsAbs(cfg.Manifest.Path) && l.configPath != "" {
		cfg.Manifest.Path = filepath.Join(filepath.Dir(l.configPath), cfg.Manifest.Path)
	}

	if lvl, err := validate.ParseLogLevel(cfg.LogLevel); err == nil {
		cfg.LogLevel = lvl.String()
	}

	// 6. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	var cfg AppConfig
	(&Loader{}).setDefaults(&cfg)
	return cfg
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.LogLevel = "info"
	cfg.LogService = "adpod"

	cfg.Content.Duration = 15 * time.Minute

	cfg.Sequencer.Tolerance = time.Second
	cfg.Sequencer.SeekGuard = 100 * time.Millisecond
	cfg.Sequencer.FailsafeMultiplier = 2

	cfg.Renderer.Script = "credit"
	cfg.Renderer.StepDelay = 2 * time.Second

	cfg.Player.Tick = time.Second
	cfg.Player.Speed = 1

	cfg.Progress.Backend = "memory"
	cfg.Progress.TTL = 30 * 24 * time.Hour
	cfg.Progress.Session = "default"
	cfg.Progress.RedisAddr = "localhost:6379"
	cfg.Progress.BadgerDir = "data/progress"

	cfg.API.Listen = ":8088"
	cfg.API.RateLimit = 60
	cfg.API.RateWindow = time.Minute
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogService != "" {
		dst.LogService = src.LogService
	}

	if src.Manifest.Path != "" {
		dst.Manifest.Path = expandEnv(src.Manifest.Path)
	}
	if src.Manifest.Watch != nil {
		dst.Manifest.Watch = *src.Manifest.Watch
	}

	if src.Content.URL != "" {
		dst.Content.URL = expandEnv(src.Content.URL)
	}

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"content.duration", src.Content.Duration, &dst.Content.Duration},
		{"sequencer.tolerance", src.Sequencer.Tolerance, &dst.Sequencer.Tolerance},
		{"sequencer.seekGuard", src.Sequencer.SeekGuard, &dst.Sequencer.SeekGuard},
		{"renderer.stepDelay", src.Renderer.StepDelay, &dst.Renderer.StepDelay},
		{"player.tick", src.Player.Tick, &dst.Player.Tick},
		{"progress.ttl", src.Progress.TTL, &dst.Progress.TTL},
		{"api.rateWindow", src.API.RateWindow, &dst.API.RateWindow},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.field, err)
		}
		*d.dst = v
	}

	if src.Sequencer.FailsafeMultiplier != nil {
		dst.Sequencer.FailsafeMultiplier = *src.Sequencer.FailsafeMultiplier
	}

	if src.Renderer.SupportsUserCancelStream != nil {
		dst.Renderer.SupportsUserCancelStream = *src.Renderer.SupportsUserCancelStream
	}
	if src.Renderer.Script != "" {
		dst.Renderer.Script = src.Renderer.Script
	}
	if src.Renderer.AdvertisingID != "" {
		dst.Renderer.AdvertisingID = src.Renderer.AdvertisingID
	}

	if src.Player.Speed != nil {
		dst.Player.Speed = *src.Player.Speed
	}

	if src.Progress.Backend != "" {
		dst.Progress.Backend = src.Progress.Backend
	}
	if src.Progress.Session != "" {
		dst.Progress.Session = src.Progress.Session
	}
	if src.Progress.Redis.Addr != "" {
		dst.Progress.RedisAddr = expandEnv(src.Progress.Redis.Addr)
	}
	if src.Progress.Redis.Password != "" {
		dst.Progress.RedisPassword = expandEnv(src.Progress.Redis.Password)
	}
	if src.Progress.Redis.DB != nil {
		dst.Progress.RedisDB = *src.Progress.Redis.DB
	}
	if src.Progress.Badger.Dir != "" {
		dst.Progress.BadgerDir = expandEnv(src.Progress.Badger.Dir)
	}

	if src.API.Listen != nil {
		dst.API.Listen = *src.API.Listen
	}
	if src.API.RateLimit != nil {
		dst.API.RateLimit = *src.API.RateLimit
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("ADPOD_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("ADPOD_LOG_SERVICE", cfg.LogService)

	cfg.Manifest.Path = l.envString("ADPOD_MANIFEST", cfg.Manifest.Path)
	cfg.Manifest.Watch = l.envBool("ADPOD_MANIFEST_WATCH", cfg.Manifest.Watch)

	cfg.Content.URL = l.envString("ADPOD_CONTENT_URL", cfg.Content.URL)
	cfg.Content.Duration = l.envDuration("ADPOD_CONTENT_DURATION", cfg.Content.Duration)

	cfg.Sequencer.Tolerance = l.envDuration("ADPOD_TOLERANCE", cfg.Sequencer.Tolerance)
	cfg.Sequencer.SeekGuard = l.envDuration("ADPOD_SEEK_GUARD", cfg.Sequencer.SeekGuard)
	cfg.Sequencer.FailsafeMultiplier = l.envFloat("ADPOD_FAILSAFE_MULTIPLIER", cfg.Sequencer.FailsafeMultiplier)

	cfg.Renderer.SupportsUserCancelStream = l.envBool("ADPOD_USER_CANCEL_STREAM", cfg.Renderer.SupportsUserCancelStream)
	cfg.Renderer.Script = l.envString("ADPOD_RENDERER_SCRIPT", cfg.Renderer.Script)
	cfg.Renderer.StepDelay = l.envDuration("ADPOD_RENDERER_STEP", cfg.Renderer.StepDelay)
	cfg.Renderer.AdvertisingID = l.envString("ADPOD_ADVERTISING_ID", cfg.Renderer.AdvertisingID)

	cfg.Player.Tick = l.envDuration("ADPOD_PLAYER_TICK", cfg.Player.Tick)
	cfg.Player.Speed = l.envFloat("ADPOD_PLAYER_SPEED", cfg.Player.Speed)

	cfg.Progress.Backend = l.envString("ADPOD_PROGRESS_BACKEND", cfg.Progress.Backend)
	cfg.Progress.TTL = l.envDuration("ADPOD_PROGRESS_TTL", cfg.Progress.TTL)
	cfg.Progress.Session = l.envString("ADPOD_SESSION", cfg.Progress.Session)
	cfg.Progress.RedisAddr = l.envString("ADPOD_REDIS_ADDR", cfg.Progress.RedisAddr)
	cfg.Progress.RedisPassword = l.envString("ADPOD_REDIS_PASSWORD", cfg.Progress.RedisPassword)
	cfg.Progress.RedisDB = l.envInt("ADPOD_REDIS_DB", cfg.Progress.RedisDB)
	cfg.Progress.BadgerDir = l.envString("ADPOD_BADGER_DIR", cfg.Progress.BadgerDir)

	cfg.API.Listen = l.envString("ADPOD_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt("ADPOD_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.RateWindow = l.envDuration("ADPOD_RATE_WINDOW", cfg.API.RateWindow)
}

// String renders the configuration with secrets masked.
func (c AppConfig) String() string {
	masked := c
	if masked.Progress.RedisPassword != "" {
		masked.Progress.RedisPassword = "***"
	}
	type plain AppConfig
	return fmt.Sprintf("%+v", plain(masked))
}
