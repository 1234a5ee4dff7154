// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package renderer defines the contract of the external interactive ad
// renderer. Implementations are opaque: they fetch, render and report
// progress exclusively through the event stream.
package renderer

import (
	"encoding/json"
	"errors"
)

var (
	// ErrNoConfig is returned by Init when neither a URL nor inline parameters are given.
	ErrNoConfig = errors.New("renderer: no ad configuration")
	// ErrNotInitialized is returned by Start before a successful Init.
	ErrNotInitialized = errors.New("renderer: not initialized")
	// ErrNoSurface is returned by Start without a surface to draw on.
	ErrNoSurface = errors.New("renderer: no surface")
)

// Config points the renderer at one interactive ad. URL and Inline are
// alternatives; Inline wins when both are set.
type Config struct {
	URL    string
	Inline json.RawMessage
}

// Options tune a single renderer session.
type Options struct {
	SupportsUserCancelStream bool
	FallbackAdvertisingID    string
	UserAdvertisingID        string
}

// Surface is the container the renderer draws into.
type Surface interface {
	SurfaceID() string
}

// Handler receives renderer events. It may be called from any goroutine.
type Handler func(Event)

// Renderer is one interactive ad session.
type Renderer interface {
	Init(cfg Config, opts Options) error
	Start(surface Surface) error
	Resume()
	Pause()
	Stop()
	Destroy()
	// Subscribe registers h and returns a function that removes it.
	Subscribe(h Handler) (unsubscribe func())
}

// Factory creates a fresh renderer per interactive ad.
type Factory func() Renderer

// NamedSurface is a Surface identified by a fixed name.
type NamedSurface string

// SurfaceID implements Surface.
func (s NamedSurface) SurfaceID() string { return string(s) }
