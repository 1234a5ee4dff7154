// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package progress remembers which ad breaks a viewer has already watched,
// so a resumed session does not replay them.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// ErrEmptySession is returned when a session key is blank.
var ErrEmptySession = errors.New("progress: empty session key")

// Store records completed breaks per viewing session.
type Store interface {
	MarkCompleted(ctx context.Context, session, breakID string) error
	// Completed returns the completed break IDs in sorted order.
	Completed(ctx context.Context, session string) ([]string, error)
	Reset(ctx context.Context, session string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	TTL     time.Duration
	Redis   RedisConfig
	Dir     string // badger data directory
}

// Open builds the configured Store. An empty backend means memory.
func Open(cfg Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(cfg.Redis, cfg.TTL, logger)
	case BackendBadger:
		return OpenBadgerStore(cfg.Dir, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown progress backend: %s", cfg.Backend)
	}
}

func checkSession(session string) error {
	if session == "" {
		return ErrEmptySession
	}
	return nil
}
