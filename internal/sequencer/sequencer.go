// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sequencer drives one ad break at a time through a playback host:
// it picks the eligible break, steps through the pod, hands interactive ads
// to an overlay adapter and returns to content when the break is done or
// credit was earned.
//
// A Sequencer is not safe for concurrent use. All calls, including the
// callbacks it schedules for itself, run on a single dispatcher.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/fsm"
	"github.com/ManuGH/adpod/internal/log"
	"github.com/ManuGH/adpod/internal/metrics"
	"github.com/ManuGH/adpod/internal/overlay"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/runloop"
)

const (
	DefaultTolerance          = time.Second
	DefaultSeekGuard          = 100 * time.Millisecond
	DefaultFailsafeMultiplier = 2.0
)

// ErrNoBreak is returned by StartAdBreak when no break is selected.
var ErrNoBreak = errors.New("no ad break selected")

// Config holds the sequencing policy.
type Config struct {
	// Tolerance is the eligibility window around a break's offset.
	Tolerance time.Duration
	// SeekGuard keeps the interactive hold position inside the ad's segment.
	// Zero selects DefaultSeekGuard; a negative value holds on the boundary.
	SeekGuard time.Duration
	// FailsafeMultiplier scales an interactive ad's duration into its timeout.
	FailsafeMultiplier float64
}

func (c Config) withDefaults() Config {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	switch {
	case c.SeekGuard == 0:
		c.SeekGuard = DefaultSeekGuard
	case c.SeekGuard < 0:
		c.SeekGuard = 0
	}
	if c.FailsafeMultiplier <= 0 {
		c.FailsafeMultiplier = DefaultFailsafeMultiplier
	}
	return c
}

// Options wires a Sequencer to its collaborators.
type Options struct {
	Config     Config
	Dispatcher runloop.Dispatcher
	Clock      clock.Clock
	Renderers  renderer.Factory
	Overlay    overlay.Options
}

// Result records how one interactive ad ended.
type Result struct {
	BreakID string     `json:"breakId"`
	AdID    string     `json:"adId"`
	AdType  ads.AdType `json:"adType"`
	Credit  bool       `json:"credit"`
	Reason  string     `json:"reason"`
}

// Sequencer owns the current break and the single overlay slot.
type Sequencer struct {
	host     Host
	cfg      Config
	dispatch runloop.Dispatcher
	clock    clock.Clock
	newR     renderer.Factory
	ovOpts   overlay.Options
	logger   zerolog.Logger
	machine  *fsm.Machine[State, Event]

	playlist []*ads.AdBreak
	current  *ads.AdBreak
	timeline Timeline

	overlay   *overlay.Adapter
	overlayAd *ads.Ad
	launchAt  time.Time
	failsafe  *clock.Timer
	gen       uint64

	results []Result
}

// New returns an idle sequencer bound to host.
func New(host Host, opts Options) *Sequencer {
	if opts.Dispatcher == nil {
		opts.Dispatcher = runloop.Inline{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	s := &Sequencer{
		host:     host,
		cfg:      opts.Config.withDefaults(),
		dispatch: opts.Dispatcher,
		clock:    opts.Clock,
		newR:     opts.Renderers,
		ovOpts:   opts.Overlay,
		logger:   log.WithComponent("sequencer"),
		machine:  mustMachine(),
	}
	s.machine.Observe(func(from, to State, ev Event) {
		metrics.SetSequencerState(string(to))
		s.logger.Debug().
			Str(log.FieldEvent, "sequencer.transition").
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str("trigger", string(ev)).
			Msg("state changed")
	})
	metrics.SetSequencerState(string(StateIdle))
	return s
}

// SetPlaylist replaces the schedule. Breaks must be sorted by offset.
func (s *Sequencer) SetPlaylist(breaks []*ads.AdBreak) {
	s.playlist = breaks
	s.logger.Info().
		Str(log.FieldEvent, "sequencer.playlist").
		Int(log.FieldBreakCount, len(breaks)).
		Msg("playlist set")
}

// Playlist returns the current schedule.
func (s *Sequencer) Playlist() []*ads.AdBreak { return s.playlist }

// MarkViewed flags the named breaks as completed so they are never
// selected. Used to restore progress from an earlier session.
func (s *Sequencer) MarkViewed(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for _, b := range s.playlist {
		if _, ok := want[b.ID]; ok && !b.Completed() {
			b.MarkCompleted()
			n++
		}
	}
	return n
}

// NextBreakBetween returns the first break that is still eligible and
// whose offset lies in (from, to]. Hosts that advance the playhead in
// coarse steps use it to land exactly on a cue point.
func (s *Sequencer) NextBreakBetween(from, to time.Duration) *ads.AdBreak {
	for _, b := range s.playlist {
		if b.Started() || b.Completed() {
			continue
		}
		if b.Offset > from && b.Offset <= to {
			return b
		}
	}
	return nil
}

// AdBreakAt returns the first break whose offset is within the tolerance
// window of pos and that has neither started nor completed.
func (s *Sequencer) AdBreakAt(pos time.Duration) *ads.AdBreak {
	for _, b := range s.playlist {
		if b.Started() || b.Completed() {
			continue
		}
		d := pos - b.Offset
		if d < 0 {
			d = -d
		}
		if d <= s.cfg.Tolerance {
			return b
		}
	}
	return nil
}

// SetCurrentAdBreak selects b and builds its timeline. A nil break clears
// the selection. Any overlay still alive is released first.
func (s *Sequencer) SetCurrentAdBreak(b *ads.AdBreak) error {
	if b == nil {
		if s.current == nil {
			return nil
		}
		if _, err := s.machine.Fire(EventClear); err != nil {
			return err
		}
		s.disposeOverlay()
		s.current = nil
		s.timeline = Timeline{}
		return nil
	}
	if _, err := s.machine.Fire(EventSelect); err != nil {
		return fmt.Errorf("select break %s: %w", b.ID, err)
	}
	s.disposeOverlay()
	b.Rewind()
	s.current = b
	s.timeline = BuildTimeline(b)

	s.breakLogger().Info().
		Str(log.FieldEvent, "adbreak.selected").
		Int(log.FieldAdCount, len(b.Ads)).
		Int64(log.FieldOffsetMS, b.Offset.Milliseconds()).
		Msg("ad break selected")
	return nil
}

// StartAdBreak plays the selected break from its first ad.
func (s *Sequencer) StartAdBreak() error {
	if s.current == nil {
		return ErrNoBreak
	}
	if _, err := s.machine.Fire(EventStart); err != nil {
		return fmt.Errorf("start break %s: %w", s.current.ID, err)
	}
	s.current.MarkStarted()
	metrics.RecordAdBreak("started")
	s.breakLogger().Info().
		Str(log.FieldEvent, "adbreak.started").
		Int64("timeline_ms", s.timeline.Duration().Milliseconds()).
		Msg("ad break started")

	s.host.PlayMediaSource(s.timeline)
	s.enterCurrentAd()
	return nil
}

// OnMediaItemCompleted advances to the next ad when the host's timeline
// crosses a segment boundary.
func (s *Sequencer) OnMediaItemCompleted() {
	if s.current == nil || !s.State().InBreak() {
		return
	}
	if s.current.CurrentAd() == nil {
		return
	}
	if s.State() == StateInteractiveOverlayActive {
		s.disposeOverlay()
		s.fire(EventOverlayDone)
	}
	if s.current.Advance() == nil {
		s.completeBreak()
		return
	}
	s.enterCurrentAd()
}

// OnPlaybackEnded finishes the break when the whole timeline played out.
func (s *Sequencer) OnPlaybackEnded() {
	if s.current == nil || !s.State().InBreak() {
		return
	}
	if s.State() == StateInteractiveOverlayActive {
		s.disposeOverlay()
		s.fire(EventOverlayDone)
	}
	s.completeBreak()
}

// IsPlayingInteractiveAd reports whether an overlay currently holds playback.
func (s *Sequencer) IsPlayingInteractiveAd() bool {
	return s.State() == StateInteractiveOverlayActive
}

// OnResume forwards the host lifecycle to the live overlay.
func (s *Sequencer) OnResume() {
	if s.overlay != nil {
		s.overlay.Resume()
	}
}

// OnPause forwards the host lifecycle to the live overlay.
func (s *Sequencer) OnPause() {
	if s.overlay != nil {
		s.overlay.Pause()
	}
}

// OnStop stops and releases the live overlay.
func (s *Sequencer) OnStop() {
	if s.overlay != nil {
		s.overlay.Stop()
	}
	s.disposeOverlay()
}

// CurrentAdBreak returns the selected break, or nil.
func (s *Sequencer) CurrentAdBreak() *ads.AdBreak { return s.current }

// Timeline returns the timeline of the selected break.
func (s *Sequencer) Timeline() Timeline { return s.timeline }

// State returns the lifecycle state.
func (s *Sequencer) State() State { return s.machine.State() }

// Results lists interactive outcomes in completion order.
func (s *Sequencer) Results() []Result {
	return append([]Result(nil), s.results...)
}

// Close releases the overlay, if any.
func (s *Sequencer) Close() {
	s.disposeOverlay()
}

func (s *Sequencer) enterCurrentAd() {
	ad := s.current.CurrentAd()
	if ad == nil {
		return
	}
	if ad.IsInteractive() {
		s.launchOverlay(ad)
		return
	}
	s.fire(EventAdBegin)
	s.adLogger(ad).Debug().
		Str(log.FieldEvent, "ad.linear").
		Str(log.FieldMediaURL, ad.MediaFile).
		Msg("linear ad playing")
}

func (s *Sequencer) launchOverlay(ad *ads.Ad) {
	s.disposeOverlay()
	s.fire(EventOverlayLaunch)

	idx := s.current.Index()
	hold := s.current.EndOfAd(idx) - s.cfg.SeekGuard
	if start := s.timeline.SegmentStart(idx); hold < start {
		hold = start
	}
	s.host.ControlPlayer(ActionSeekAndPause, hold)

	s.gen++
	gen := s.gen
	s.overlayAd = ad
	s.launchAt = s.clock.Now()
	logger := s.adLogger(ad)

	surface := s.host.AdSurface()
	if surface == nil || s.newR == nil {
		logger.Warn().
			Str(log.FieldEvent, "overlay.no_surface").
			Msg("ad surface unavailable, continuing without interactive ad")
		s.finishOverlay(gen, false, "no_surface")
		return
	}

	a := overlay.New(s.newR(), s.dispatch, s.ovOpts, overlay.Callbacks{
		OnComplete: func(credit bool) {
			reason := "no_credit"
			if credit {
				reason = "credit"
			}
			s.finishOverlay(gen, credit, reason)
		},
		OnPopup: func(url string) {
			if gen == s.gen {
				s.host.HandlePopup(url)
			}
		},
	})
	s.overlay = a

	timeout := time.Duration(float64(ad.Duration) * s.cfg.FailsafeMultiplier)
	s.failsafe = s.clock.AfterFunc(timeout, func() {
		s.dispatch.Post(func() { s.onFailsafe(gen) })
	})

	logger.Info().
		Str(log.FieldEvent, "overlay.launch").
		Int64(log.FieldPositionMS, hold.Milliseconds()).
		Int64(log.FieldTimeoutMS, timeout.Milliseconds()).
		Msg("launching interactive ad")

	if err := a.Start(surface, *ad); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "overlay.start_failed").
			Msg("interactive ad failed to start")
		s.finishOverlay(gen, false, "start_failed")
	}
}

func (s *Sequencer) onFailsafe(gen uint64) {
	if gen != s.gen || s.State() != StateInteractiveOverlayActive {
		return
	}
	metrics.RecordFailsafe()
	s.adLogger(s.overlayAd).Warn().
		Str(log.FieldEvent, "overlay.failsafe").
		Msg("interactive ad did not complete in time")
	s.finishOverlay(gen, false, "failsafe")
}

// finishOverlay applies an interactive completion. Stale generations are
// dropped so a disposed overlay cannot resurrect a finished break.
func (s *Sequencer) finishOverlay(gen uint64, credit bool, reason string) {
	if gen != s.gen || s.State() != StateInteractiveOverlayActive {
		return
	}
	ad := s.overlayAd
	if reason == "failsafe" || reason == "no_surface" || reason == "start_failed" {
		metrics.RecordInteractiveCompletion(ad.Type.String(), normalizeReason(reason), s.clock.Since(s.launchAt))
	}
	s.disposeOverlay()
	s.results = append(s.results, Result{
		BreakID: s.current.ID,
		AdID:    ad.ID,
		AdType:  ad.Type,
		Credit:  credit,
		Reason:  reason,
	})

	if credit {
		s.current.MarkCompleted()
		s.fire(EventCredit)
		metrics.RecordAdBreak("skipped")
		s.breakLogger().Info().
			Str(log.FieldEvent, "adbreak.skipped").
			Str(log.FieldAdID, ad.ID).
			Msg("credit earned, skipping to content")
		s.host.OnSkipToContent()
		return
	}
	s.fire(EventOverlayDone)
	s.host.ControlPlayer(ActionPlay, 0)
}

func normalizeReason(reason string) string {
	if reason == "start_failed" {
		return "no_surface"
	}
	return reason
}

func (s *Sequencer) completeBreak() {
	s.current.MarkCompleted()
	s.fire(EventComplete)
	metrics.RecordAdBreak("completed")
	s.breakLogger().Info().
		Str(log.FieldEvent, "adbreak.completed").
		Msg("ad break complete")
	s.host.OnAdBreakComplete()
}

// disposeOverlay cancels the failsafe and releases the adapter. Bumping the
// generation makes every callback already in flight stale.
func (s *Sequencer) disposeOverlay() {
	if s.failsafe != nil {
		s.failsafe.Stop()
		s.failsafe = nil
	}
	if s.overlay != nil {
		s.overlay.Destroy()
		s.overlay = nil
	}
	if s.overlayAd != nil {
		s.overlayAd = nil
		s.gen++
	}
}

func (s *Sequencer) fire(ev Event) {
	if _, err := s.machine.Fire(ev); err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "sequencer.invalid_transition").
			Msg("unexpected sequencer event")
	}
}

func (s *Sequencer) breakLogger() *zerolog.Logger {
	l := s.logger.With().Str(log.FieldBreakID, s.current.ID).Logger()
	return &l
}

func (s *Sequencer) adLogger(ad *ads.Ad) *zerolog.Logger {
	l := s.logger.With().
		Str(log.FieldBreakID, s.current.ID).
		Str(log.FieldAdID, ad.ID).
		Str(log.FieldAdType, ad.Type.String()).
		Int(log.FieldAdIndex, s.current.Index()).
		Logger()
	return &l
}
