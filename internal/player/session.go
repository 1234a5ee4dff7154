// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player is a headless playback host. It simulates a content
// stream and an ad pod timeline, feeds position updates into the sequencer
// and obeys its commands.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/log"
	"github.com/ManuGH/adpod/internal/progress"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/runloop"
	"github.com/ManuGH/adpod/internal/sequencer"
)

// Mode is what the player is currently showing.
type Mode string

const (
	ModeContent       Mode = "content"
	ModeLinearAds     Mode = "linear_ads"
	ModeInteractiveAd Mode = "interactive_ad"
)

// ErrFinished is returned by control calls after the session ended.
var ErrFinished = errors.New("session finished")

// Opener shows popup URLs outside the player.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }

// Options configure a Session.
type Options struct {
	SessionKey      string
	ContentURL      string
	ContentDuration time.Duration
	Tick            time.Duration
	Speed           float64

	Executor  runloop.Executor
	Clock     clock.Clock
	Progress  progress.Store
	Opener    Opener
	Surface   renderer.Surface
	Sequencer sequencer.Options
}

// BreakOutcome records how a break handed control back to content.
type BreakOutcome struct {
	BreakID           string `json:"breakId"`
	Outcome           string `json:"outcome"`
	ContentPositionMS int64  `json:"contentPositionMs"`
}

// Session owns the simulated player. Its state is only touched on the
// executor; exported methods taking a context are safe from any goroutine.
type Session struct {
	opts   Options
	exec   runloop.Executor
	clock  clock.Clock
	seq    *sequencer.Sequencer
	logger zerolog.Logger

	mode       Mode
	contentPos time.Duration
	resumePos  time.Duration
	timeline   sequencer.Timeline
	adPos      time.Duration
	adSegment  int
	holding    bool
	paused     bool
	started    bool
	finished   bool

	pending  []*ads.AdBreak
	outcomes []BreakOutcome

	doneOnce sync.Once
	done     chan struct{}
}

// New builds a session over breaks. Call Start before ticking.
func New(opts Options, breaks []*ads.AdBreak) *Session {
	if opts.Executor == nil {
		opts.Executor = runloop.Inline{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Progress == nil {
		opts.Progress = progress.NewMemoryStore()
	}
	if opts.SessionKey == "" {
		opts.SessionKey = "default"
	}
	s := &Session{
		opts:  opts,
		exec:  opts.Executor,
		clock: opts.Clock,
		mode:  ModeContent,
		done:  make(chan struct{}),
		logger: log.WithComponent("player").With().
			Str(log.FieldSessionID, opts.SessionKey).
			Logger(),
	}
	seqOpts := opts.Sequencer
	seqOpts.Dispatcher = opts.Executor
	seqOpts.Clock = opts.Clock
	s.seq = sequencer.New(s, seqOpts)
	s.seq.SetPlaylist(breaks)
	return s
}

// Sequencer exposes the session's sequencer.
func (s *Session) Sequencer() *sequencer.Sequencer { return s.seq }

// Done is closed once the content played out or the session was stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start restores progress and plays any break scheduled at the beginning.
// It must run on the executor.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true

	viewed, err := s.opts.Progress.Completed(ctx, s.opts.SessionKey)
	if err != nil {
		return err
	}
	if n := s.seq.MarkViewed(viewed); n > 0 {
		s.logger.Info().
			Str(log.FieldEvent, "player.progress_restored").
			Int(log.FieldBreakCount, n).
			Msg("skipping breaks already watched")
	}

	s.logger.Info().
		Str(log.FieldEvent, "player.content_started").
		Str(log.FieldMediaURL, s.opts.ContentURL).
		Int64("duration_ms", s.opts.ContentDuration.Milliseconds()).
		Msg("content playback started")
	s.checkForBreak()
	return nil
}

// Tick advances the active playhead by elapsed wall time. It must run on
// the executor.
func (s *Session) Tick(elapsed time.Duration) {
	if !s.started || s.finished || s.paused {
		return
	}
	step := time.Duration(float64(elapsed) * s.opts.Speed)
	switch s.mode {
	case ModeContent:
		s.advanceContent(step)
	default:
		s.advanceAds(step)
	}
}

func (s *Session) advanceContent(step time.Duration) {
	from := s.contentPos
	to := from + step
	if b := s.seq.NextBreakBetween(from, to); b != nil {
		to = b.Offset
	}
	if s.opts.ContentDuration > 0 && to >= s.opts.ContentDuration {
		s.contentPos = s.opts.ContentDuration
		s.finish("content_complete")
		return
	}
	s.contentPos = to
	s.checkForBreak()
}

func (s *Session) checkForBreak() {
	if s.mode != ModeContent {
		return
	}
	b := s.seq.AdBreakAt(s.contentPos)
	if b == nil {
		return
	}
	if err := s.seq.SetCurrentAdBreak(b); err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "player.break_select_failed").
			Str(log.FieldBreakID, b.ID).
			Msg("could not select ad break")
		return
	}
	if err := s.seq.StartAdBreak(); err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "player.break_start_failed").
			Str(log.FieldBreakID, b.ID).
			Msg("could not start ad break")
	}
}

func (s *Session) advanceAds(step time.Duration) {
	if s.holding {
		return
	}
	s.adPos += step
	for s.mode != ModeContent && !s.holding {
		seg := s.timeline.SegmentAt(s.adPos)
		if seg <= s.adSegment {
			return
		}
		s.adSegment++
		if s.adSegment >= len(s.timeline.Segments) {
			s.seq.OnPlaybackEnded()
			return
		}
		s.seq.OnMediaItemCompleted()
	}
}

// PlayMediaSource implements sequencer.Host.
func (s *Session) PlayMediaSource(t sequencer.Timeline) {
	s.resumePos = s.contentPos
	s.mode = ModeLinearAds
	s.timeline = t
	s.adPos = 0
	s.adSegment = 0
	s.holding = false
	s.logger.Info().
		Str(log.FieldEvent, "player.ad_pod").
		Str(log.FieldBreakID, t.BreakID).
		Int(log.FieldAdCount, len(t.Segments)).
		Int64(log.FieldPositionMS, s.resumePos.Milliseconds()).
		Msg("switched to ad pod")
	if len(t.Segments) == 0 {
		// Nothing to play: the timeline ends immediately.
		s.exec.Post(func() {
			if s.mode == ModeLinearAds && s.timeline.BreakID == t.BreakID {
				s.seq.OnPlaybackEnded()
			}
		})
	}
}

// ControlPlayer implements sequencer.Host.
func (s *Session) ControlPlayer(action sequencer.PlayerAction, pos time.Duration) {
	switch action {
	case sequencer.ActionSeekAndPause:
		s.adPos = pos
		// The hold may sit on a boundary; the held ad stays current.
		if b := s.seq.CurrentAdBreak(); b != nil {
			s.adSegment = b.Index()
		} else {
			s.adSegment = s.timeline.SegmentAt(pos)
		}
		s.holding = true
		s.mode = ModeInteractiveAd
	case sequencer.ActionPlay:
		s.holding = false
		if s.mode == ModeInteractiveAd {
			s.mode = ModeLinearAds
		}
	}
	s.logger.Debug().
		Str(log.FieldEvent, "player.control").
		Str("action", string(action)).
		Int64(log.FieldPositionMS, s.adPos.Milliseconds()).
		Msg("player command")
}

// OnAdBreakComplete implements sequencer.Host.
func (s *Session) OnAdBreakComplete() { s.returnToContent("completed") }

// OnSkipToContent implements sequencer.Host.
func (s *Session) OnSkipToContent() { s.returnToContent("skipped") }

// HandlePopup implements sequencer.Host.
func (s *Session) HandlePopup(url string) {
	s.logger.Info().
		Str(log.FieldEvent, "player.popup").
		Str(log.FieldPopupURL, url).
		Msg("opening popup")
	if s.opts.Opener == nil {
		return
	}
	if err := s.opts.Opener.Open(url); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldPopupURL, url).Msg("popup failed")
	}
}

// AdSurface implements sequencer.Host.
func (s *Session) AdSurface() renderer.Surface { return s.opts.Surface }

func (s *Session) returnToContent(outcome string) {
	b := s.seq.CurrentAdBreak()
	s.mode = ModeContent
	s.contentPos = s.resumePos
	s.timeline = sequencer.Timeline{}
	s.adPos = 0
	s.adSegment = 0
	s.holding = false
	if b == nil {
		return
	}

	s.outcomes = append(s.outcomes, BreakOutcome{
		BreakID:           b.ID,
		Outcome:           outcome,
		ContentPositionMS: s.contentPos.Milliseconds(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.opts.Progress.MarkCompleted(ctx, s.opts.SessionKey, b.ID); err != nil {
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "player.progress_failed").
			Str(log.FieldBreakID, b.ID).
			Msg("could not persist watched break")
	}
	s.logger.Info().
		Str(log.FieldEvent, "player.content_resumed").
		Str(log.FieldBreakID, b.ID).
		Str("outcome", outcome).
		Int64(log.FieldPositionMS, s.contentPos.Milliseconds()).
		Msg("back to content")

	if s.pending != nil {
		s.applyPlaylist(s.pending)
		s.pending = nil
	}
}

// SetPlaylist swaps the schedule. While a break plays the swap waits until
// content resumes. It must run on the executor.
func (s *Session) SetPlaylist(breaks []*ads.AdBreak) {
	if s.mode != ModeContent {
		s.pending = breaks
		return
	}
	s.applyPlaylist(breaks)
}

func (s *Session) applyPlaylist(breaks []*ads.AdBreak) {
	viewed := make([]string, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		viewed = append(viewed, o.BreakID)
	}
	s.seq.SetPlaylist(breaks)
	s.seq.MarkViewed(viewed)
}

func (s *Session) pause() {
	if s.paused {
		return
	}
	s.paused = true
	s.seq.OnPause()
}

func (s *Session) resume() {
	if !s.paused {
		return
	}
	s.paused = false
	s.seq.OnResume()
}

func (s *Session) finish(reason string) {
	if s.finished {
		return
	}
	s.finished = true
	s.seq.OnStop()
	s.seq.Close()
	s.logger.Info().
		Str(log.FieldEvent, "player.finished").
		Str("reason", reason).
		Int("breaks_played", len(s.outcomes)).
		Msg("session finished")
	s.doneOnce.Do(func() { close(s.done) })
}

// Run drives Tick from a clock ticker until the session finishes or ctx
// is cancelled. Ticks are posted onto the executor.
func (s *Session) Run(ctx context.Context) error {
	if err := s.exec.Do(ctx, func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error().Err(err).Str(log.FieldEvent, "player.start_failed").Msg("progress restore failed")
		}
	}); err != nil {
		return err
	}

	ticker := s.clock.Ticker(s.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			s.exec.Post(func() { s.Tick(s.opts.Tick) })
		}
	}
}

// Pause pauses playback and the live overlay.
func (s *Session) Pause(ctx context.Context) error {
	return s.control(ctx, s.pause)
}

// Resume resumes playback and the live overlay.
func (s *Session) Resume(ctx context.Context) error {
	return s.control(ctx, s.resume)
}

// Stop ends the session.
func (s *Session) Stop(ctx context.Context) error {
	return s.control(ctx, func() { s.finish("stopped") })
}

// Reload replaces the break schedule.
func (s *Session) Reload(ctx context.Context, breaks []*ads.AdBreak) error {
	return s.control(ctx, func() { s.SetPlaylist(breaks) })
}

func (s *Session) control(ctx context.Context, fn func()) error {
	var finished bool
	err := s.exec.Do(ctx, func() {
		finished = s.finished
		if !finished {
			fn()
		}
	})
	if err != nil {
		return err
	}
	if finished {
		return ErrFinished
	}
	return nil
}
