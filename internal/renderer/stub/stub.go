// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stub provides a scripted renderer that replays a fixed event
// sequence on a clock. It stands in for the real interactive SDK in the CLI
// and in tests.
package stub

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ManuGH/adpod/internal/renderer"
)

// Script names a canned engagement.
type Script string

const (
	ScriptCredit       Script = "credit"
	ScriptNoCredit     Script = "no_credit"
	ScriptError        Script = "error"
	ScriptNoAds        Script = "no_ads"
	ScriptCancelStream Script = "cancel_stream"
	ScriptPopup        Script = "popup"
	ScriptHang         Script = "hang"
)

// DefaultPopupURL is emitted by ScriptPopup.
const DefaultPopupURL = "https://www.infillion.com/"

func ev(k renderer.EventKind) renderer.Event { return renderer.Event{Kind: k} }

var scripts = map[Script][]renderer.Event{
	ScriptCredit: {
		ev(renderer.EventFetchCompleted), ev(renderer.EventStarted), ev(renderer.EventDisplayed),
		ev(renderer.EventOptIn), ev(renderer.EventFreePod), ev(renderer.EventCompleted),
	},
	ScriptNoCredit: {
		ev(renderer.EventFetchCompleted), ev(renderer.EventStarted), ev(renderer.EventDisplayed),
		ev(renderer.EventOptOut), ev(renderer.EventCompleted),
	},
	ScriptError: {
		{Kind: renderer.EventError, Message: "scripted failure"},
	},
	ScriptNoAds: {
		ev(renderer.EventFetchCompleted), ev(renderer.EventNoAdsAvailable),
	},
	ScriptCancelStream: {
		ev(renderer.EventFetchCompleted), ev(renderer.EventStarted), ev(renderer.EventDisplayed),
		ev(renderer.EventUserCancelStream),
	},
	ScriptPopup: {
		ev(renderer.EventFetchCompleted), ev(renderer.EventStarted), ev(renderer.EventDisplayed),
		{Kind: renderer.EventPopupWebsite, URL: DefaultPopupURL}, ev(renderer.EventCompleted),
	},
	ScriptHang: {
		ev(renderer.EventFetchCompleted), ev(renderer.EventStarted), ev(renderer.EventDisplayed),
	},
}

// ParseScript validates a script name.
func ParseScript(name string) (Script, error) {
	s := Script(name)
	if _, ok := scripts[s]; !ok {
		return "", fmt.Errorf("unknown renderer script %q (known: %v)", name, Scripts())
	}
	return s, nil
}

// Scripts lists the known script names in sorted order.
func Scripts() []string {
	out := make([]string, 0, len(scripts))
	for s := range scripts {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}

// Renderer replays a script, one event per step.
type Renderer struct {
	clock  clock.Clock
	step   time.Duration
	script []renderer.Event

	emitter renderer.Emitter

	mu          sync.Mutex
	cfg         renderer.Config
	opts        renderer.Options
	surface     renderer.Surface
	initialized bool
	running     bool
	paused      bool
	destroyed   bool
	next        int
	gen         uint64
	timer       *clock.Timer
	calls       []string
}

// New returns a renderer for script. A nil clock uses the wall clock.
func New(script Script, step time.Duration, clk clock.Clock) *Renderer {
	if clk == nil {
		clk = clock.New()
	}
	evs := append([]renderer.Event(nil), scripts[script]...)
	return &Renderer{clock: clk, step: step, script: evs}
}

// NewFactory returns a renderer.Factory building fresh stubs for script.
func NewFactory(script Script, step time.Duration, clk clock.Clock) renderer.Factory {
	return func() renderer.Renderer { return New(script, step, clk) }
}

func (r *Renderer) record(call string) {
	r.calls = append(r.calls, call)
}

// Init implements renderer.Renderer.
func (r *Renderer) Init(cfg renderer.Config, opts renderer.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("init")
	if cfg.URL == "" && len(cfg.Inline) == 0 {
		return renderer.ErrNoConfig
	}
	r.cfg = cfg
	r.opts = opts
	r.initialized = true
	if !opts.SupportsUserCancelStream {
		r.script = downgradeCancelStream(r.script)
	}
	return nil
}

// A renderer that was not told it may cancel the stream falls back to a plain
// user cancel followed by completion.
func downgradeCancelStream(in []renderer.Event) []renderer.Event {
	out := make([]renderer.Event, 0, len(in)+1)
	for _, e := range in {
		if e.Kind == renderer.EventUserCancelStream {
			out = append(out, ev(renderer.EventUserCancel), ev(renderer.EventCompleted))
			continue
		}
		out = append(out, e)
	}
	return out
}

// Start implements renderer.Renderer.
func (r *Renderer) Start(surface renderer.Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("start")
	if !r.initialized {
		return renderer.ErrNotInitialized
	}
	if surface == nil {
		return renderer.ErrNoSurface
	}
	if r.destroyed || r.running {
		return nil
	}
	r.surface = surface
	r.running = true
	r.scheduleLocked()
	return nil
}

// Resume implements renderer.Renderer.
func (r *Renderer) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("resume")
	if !r.paused || !r.running {
		return
	}
	r.paused = false
	r.scheduleLocked()
}

// Pause implements renderer.Renderer.
func (r *Renderer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("pause")
	if !r.running || r.paused {
		return
	}
	r.paused = true
	r.stopTimerLocked()
}

// Stop implements renderer.Renderer.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("stop")
	r.running = false
	r.stopTimerLocked()
}

// Destroy implements renderer.Renderer.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	r.record("destroy")
	r.destroyed = true
	r.running = false
	r.stopTimerLocked()
	r.mu.Unlock()
	r.emitter.Clear()
}

// Subscribe implements renderer.Renderer.
func (r *Renderer) Subscribe(h renderer.Handler) func() {
	return r.emitter.Subscribe(h)
}

// Emit pushes an unscripted event to subscribers.
func (r *Renderer) Emit(e renderer.Event) {
	r.emitter.Emit(e)
}

// Calls returns the lifecycle calls received so far, in order.
func (r *Renderer) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Config returns the configuration passed to Init.
func (r *Renderer) Config() (renderer.Config, renderer.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg, r.opts
}

// Destroyed reports whether Destroy was called.
func (r *Renderer) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// Subscribers returns the number of live subscriptions.
func (r *Renderer) Subscribers() int {
	return r.emitter.Len()
}

func (r *Renderer) scheduleLocked() {
	if r.next >= len(r.script) || r.timer != nil {
		return
	}
	gen := r.gen
	r.timer = r.clock.AfterFunc(r.step, func() { r.fire(gen) })
}

func (r *Renderer) stopTimerLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Renderer) fire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	if !r.running || r.paused || r.destroyed || r.next >= len(r.script) {
		r.mu.Unlock()
		return
	}
	e := r.script[r.next]
	r.next++
	r.scheduleLocked()
	r.mu.Unlock()

	r.emitter.Emit(e)
}

var _ renderer.Renderer = (*Renderer)(nil)
