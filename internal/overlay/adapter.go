// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package overlay binds one interactive renderer session to the sequencer's
// completion contract: credit earned, no credit, or a popup request.
package overlay

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/log"
	"github.com/ManuGH/adpod/internal/metrics"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/runloop"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice on one adapter.
	ErrAlreadyStarted = errors.New("overlay already started")
	// ErrDestroyed is returned by Start after Destroy.
	ErrDestroyed = errors.New("overlay destroyed")
)

// Options configure an adapter at construction.
type Options struct {
	// SupportsUserCancelStream lets credit-bearing ads offer a "cancel stream" exit.
	SupportsUserCancelStream bool
	// UserAdvertisingID is forwarded to the renderer when known.
	UserAdvertisingID string
}

// Callbacks receive the mapped outcomes. They run on the dispatcher.
type Callbacks struct {
	OnComplete func(creditEarned bool)
	OnPopup    func(url string)
}

// Adapter owns a single renderer session. All methods except the renderer
// subscription must be called from the dispatcher's goroutine.
type Adapter struct {
	r      renderer.Renderer
	d      runloop.Dispatcher
	opts   Options
	cb     Callbacks
	now    func() time.Time
	logger zerolog.Logger

	ad          ads.Ad
	unsubscribe func()
	startedAt   time.Time
	started     bool
	credit      bool
	completed   bool
	destroyed   bool
}

// New returns an adapter around r. Renderer events are re-posted onto d.
func New(r renderer.Renderer, d runloop.Dispatcher, opts Options, cb Callbacks) *Adapter {
	return &Adapter{
		r:      r,
		d:      d,
		opts:   opts,
		cb:     cb,
		now:    time.Now,
		logger: log.WithComponent("overlay"),
	}
}

// Start begins the engagement for ad on surface. Outcomes arrive later
// through the callbacks.
func (a *Adapter) Start(surface renderer.Surface, ad ads.Ad) error {
	if a.destroyed {
		return ErrDestroyed
	}
	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true
	a.ad = ad
	a.startedAt = a.now()
	a.logger = a.logger.With().
		Str(log.FieldAdID, ad.ID).
		Str(log.FieldAdType, ad.Type.String()).
		Logger()

	opts := renderer.Options{
		SupportsUserCancelStream: a.opts.SupportsUserCancelStream && ad.Type == ads.Truex,
		FallbackAdvertisingID:    uuid.NewString(),
		UserAdvertisingID:        a.opts.UserAdvertisingID,
	}
	cfg := renderer.Config{URL: ad.ConfigURL}
	if ad.HasInlineConfig() {
		cfg = renderer.Config{Inline: ad.Parameters}
	}

	a.unsubscribe = a.r.Subscribe(func(ev renderer.Event) {
		a.d.Post(func() { a.Handle(ev) })
	})
	if err := a.r.Init(cfg, opts); err != nil {
		return fmt.Errorf("init renderer for ad %s: %w", ad.ID, err)
	}
	if err := a.r.Start(surface); err != nil {
		return fmt.Errorf("start renderer for ad %s: %w", ad.ID, err)
	}

	a.logger.Info().
		Str(log.FieldEvent, "overlay.started").
		Str(log.FieldConfigURL, cfg.URL).
		Bool("inline_config", len(cfg.Inline) > 0).
		Bool("user_cancel_stream", opts.SupportsUserCancelStream).
		Msg("interactive ad started")
	return nil
}

// Handle maps one renderer event onto the completion contract.
// Events after completion or Destroy are dropped.
func (a *Adapter) Handle(ev renderer.Event) {
	if a.destroyed || a.completed {
		a.logger.Debug().
			Str(log.FieldEvent, "overlay.event_dropped").
			Str(log.FieldRenderer, ev.Kind.String()).
			Msg("renderer event after completion ignored")
		return
	}
	metrics.RecordRendererEvent(ev.Kind.String())

	switch ev.Kind {
	case renderer.EventFreePod:
		if a.ad.IsCreditBearing() {
			a.credit = true
		}
		a.logger.Info().
			Str(log.FieldEvent, "overlay.free_pod").
			Bool(log.FieldCredit, a.credit).
			Msg("free pod granted")
	case renderer.EventPopupWebsite:
		a.logger.Info().
			Str(log.FieldEvent, "overlay.popup").
			Str(log.FieldPopupURL, ev.URL).
			Msg("renderer requested external browser")
		if a.cb.OnPopup != nil {
			a.cb.OnPopup(ev.URL)
		}
	case renderer.EventCompleted, renderer.EventNoAdsAvailable:
		a.complete(ev.Kind, a.credit)
	case renderer.EventError:
		a.logger.Warn().
			Str(log.FieldEvent, "overlay.renderer_error").
			Str("message", ev.Message).
			Msg("renderer reported an error")
		a.complete(ev.Kind, a.credit)
	case renderer.EventUserCancelStream:
		a.complete(ev.Kind, false)
	default:
		a.logger.Debug().
			Str(log.FieldEvent, "overlay.event").
			Str(log.FieldRenderer, ev.Kind.String()).
			Msg("renderer event")
	}
}

func (a *Adapter) complete(kind renderer.EventKind, credit bool) {
	a.completed = true
	outcome := "no_credit"
	if credit {
		outcome = "credit"
	}
	metrics.RecordInteractiveCompletion(a.ad.Type.String(), outcome, a.now().Sub(a.startedAt))
	a.logger.Info().
		Str(log.FieldEvent, "overlay.completed").
		Str(log.FieldRenderer, kind.String()).
		Bool(log.FieldCredit, credit).
		Msg("interactive ad completed")
	if a.cb.OnComplete != nil {
		a.cb.OnComplete(credit)
	}
}

// Resume forwards the host lifecycle notification.
func (a *Adapter) Resume() {
	if a.live() {
		a.r.Resume()
	}
}

// Pause forwards the host lifecycle notification.
func (a *Adapter) Pause() {
	if a.live() {
		a.r.Pause()
	}
}

// Stop forwards the host lifecycle notification.
func (a *Adapter) Stop() {
	if a.live() {
		a.r.Stop()
	}
}

func (a *Adapter) live() bool { return a.started && !a.destroyed }

// Destroy releases the renderer. It is safe to call more than once.
func (a *Adapter) Destroy() {
	if a.destroyed {
		return
	}
	a.destroyed = true
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.started {
		a.r.Stop()
	}
	a.r.Destroy()
	a.logger.Debug().Str(log.FieldEvent, "overlay.destroyed").Msg("overlay released")
}

// Completed reports whether a completion outcome has been delivered.
func (a *Adapter) Completed() bool { return a.completed }

// Destroyed reports whether Destroy has run.
func (a *Adapter) Destroyed() bool { return a.destroyed }

// CreditEarned reports the latched credit state.
func (a *Adapter) CreditEarned() bool { return a.credit }
