// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/adpod/internal/renderer/stub"
	"github.com/ManuGH/adpod/internal/validate"
)

var progressBackends = []string{"memory", "redis", "badger"}

// Validate checks a resolved configuration. All problems are reported together.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", "must be one of trace, debug, info, warn, error", cfg.LogLevel)
	}

	if strings.TrimSpace(cfg.Content.URL) != "" {
		v.URL("content.url", cfg.Content.URL, []string{"http", "https", "file"})
	}
	v.PositiveDuration("content.duration", cfg.Content.Duration)

	v.DurationRange("sequencer.tolerance", cfg.Sequencer.Tolerance, 0, 10*time.Second)
	v.DurationRange("sequencer.seekGuard", cfg.Sequencer.SeekGuard, time.Millisecond, 5*time.Second)
	v.FloatRange("sequencer.failsafeMultiplier", cfg.Sequencer.FailsafeMultiplier, 1, 10)

	v.OneOf("renderer.script", cfg.Renderer.Script, stub.Scripts())
	v.PositiveDuration("renderer.stepDelay", cfg.Renderer.StepDelay)

	v.PositiveDuration("player.tick", cfg.Player.Tick)
	v.FloatRange("player.speed", cfg.Player.Speed, 0.1, 1000)

	v.OneOf("progress.backend", cfg.Progress.Backend, progressBackends)
	v.NotEmpty("progress.session", cfg.Progress.Session)
	switch cfg.Progress.Backend {
	case "redis":
		v.NotEmpty("progress.redis.addr", cfg.Progress.RedisAddr)
		v.Range("progress.redis.db", cfg.Progress.RedisDB, 0, 15)
	case "badger":
		v.NotEmpty("progress.badger.dir", cfg.Progress.BadgerDir)
	}

	if cfg.API.Listen != "" {
		v.ListenAddr("api.listen", cfg.API.Listen)
		v.Positive("api.rateLimit", cfg.API.RateLimit)
		v.PositiveDuration("api.rateWindow", cfg.API.RateWindow)
	}

	return v.Err()
}
