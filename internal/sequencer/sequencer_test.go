// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sequencer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/fsm"
	"github.com/ManuGH/adpod/internal/renderer"
)

func startBreak(t *testing.T, h *harness, b *ads.AdBreak) {
	t.Helper()
	require.NoError(t, h.seq.SetCurrentAdBreak(b))
	require.Equal(t, StateBreakSelected, h.seq.State())
	require.NoError(t, h.seq.StartAdBreak())
}

func TestLinearBreak_CompletesExactlyOnce(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d ads", n), func(t *testing.T) {
			items := make([]ads.Ad, n)
			for i := range items {
				items[i] = regular(fmt.Sprintf("ad-%d", i), 15*time.Second)
			}
			b := ads.NewAdBreak("pod", 0, items)
			h := newHarness(t, b)
			startBreak(t, h, b)
			assert.Equal(t, StateAdPlaying, h.seq.State())

			for i := 0; i < n; i++ {
				h.seq.OnMediaItemCompleted()
			}
			assert.Equal(t, n, b.Index())
			assert.True(t, b.Completed())
			assert.Equal(t, StateBreakComplete, h.seq.State())
			assert.Equal(t, 1, h.host.count("complete"))

			h.seq.OnMediaItemCompleted()
			h.seq.OnPlaybackEnded()
			assert.Equal(t, n, b.Index())
			assert.Equal(t, 1, h.host.count("complete"))
		})
	}
}

func TestStartAdBreak_PlaysTimeline(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{regular("a", 10*time.Second), regular("b", 20*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	require.Len(t, h.host.timelines, 1)
	assert.Equal(t, 30*time.Second, h.host.timelines[0].Duration())
	assert.True(t, b.Started())
	assert.Equal(t, []string{"play:pre"}, h.host.calls)
}

func TestOnPlaybackEnded_CompletesBreak(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{regular("a", 10*time.Second)})
	h := newHarness(t, b)

	h.seq.OnPlaybackEnded()
	assert.Equal(t, StateIdle, h.seq.State())

	startBreak(t, h, b)
	h.seq.OnPlaybackEnded()
	assert.Equal(t, StateBreakComplete, h.seq.State())
	assert.True(t, b.Completed())
	assert.Equal(t, 1, h.host.count("complete"))
}

func TestEmptyBreak_CompletesOnPlaybackEnded(t *testing.T) {
	b := ads.NewAdBreak("empty", 0, nil)
	h := newHarness(t, b)
	startBreak(t, h, b)
	assert.Equal(t, StateBreakStarted, h.seq.State())

	h.seq.OnMediaItemCompleted()
	assert.Equal(t, StateBreakStarted, h.seq.State())

	h.seq.OnPlaybackEnded()
	assert.Equal(t, StateBreakComplete, h.seq.State())
}

func TestInteractiveFirst_SeeksAndPauses(t *testing.T) {
	b := ads.NewAdBreak("mid", time.Minute, []ads.Ad{truex("tx", 30*time.Second), regular("r", 15*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	assert.Equal(t, StateInteractiveOverlayActive, h.seq.State())
	assert.True(t, h.seq.IsPlayingInteractiveAd())
	assert.Equal(t, []string{"play:mid", "SEEK_AND_PAUSE:29900"}, h.host.calls)
	require.Len(t, h.renderers, 1)
	assert.Equal(t, []string{"init", "start"}, h.renderers[0].Calls())
}

func TestCredit_ShortCircuitsToContent(t *testing.T) {
	b := ads.NewAdBreak("mid", time.Minute, []ads.Ad{
		regular("r0", 10*time.Second), truex("tx", 30*time.Second),
		regular("r2", 15*time.Second), regular("r3", 15*time.Second),
	})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.seq.OnMediaItemCompleted()
	require.Equal(t, 1, b.Index())
	assert.Contains(t, h.host.calls, "SEEK_AND_PAUSE:39900")

	h.emit(renderer.EventFreePod)
	assert.Equal(t, StateInteractiveOverlayActive, h.seq.State(), "credit alone does not complete")
	h.emit(renderer.EventCompleted)

	assert.Equal(t, StateBreakSkipped, h.seq.State())
	assert.True(t, b.Completed())
	assert.Equal(t, 1, h.host.count("skip"))
	assert.Zero(t, h.host.count("complete"))
	assert.True(t, h.renderers[0].Destroyed())

	h.seq.OnMediaItemCompleted()
	h.seq.OnMediaItemCompleted()
	h.seq.OnPlaybackEnded()
	assert.Equal(t, 1, b.Index())
	assert.Zero(t, h.host.count("complete"))
	assert.Equal(t, []Result{{BreakID: "mid", AdID: "tx", AdType: ads.Truex, Credit: true, Reason: "credit"}}, h.seq.Results())
}

func TestNoCredit_ResumesThenAdvances(t *testing.T) {
	b := ads.NewAdBreak("mid", 0, []ads.Ad{truex("tx", 30*time.Second), regular("r", 15*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.emit(renderer.EventOptOut)
	h.emit(renderer.EventCompleted)
	assert.Equal(t, StateAdPlaying, h.seq.State())
	assert.Equal(t, "PLAY:0", h.host.calls[len(h.host.calls)-1])
	assert.False(t, b.Completed())
	assert.Equal(t, 0, b.Index())

	h.seq.OnMediaItemCompleted()
	assert.Equal(t, 1, b.Index())
	assert.Equal(t, StateAdPlaying, h.seq.State())
	h.seq.OnMediaItemCompleted()
	assert.Equal(t, StateBreakComplete, h.seq.State())
	assert.Equal(t, 1, h.host.count("complete"))
}

func TestInlineInteractive_NeverEarnsCredit(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{idvx("iv", 20*time.Second), regular("r", 15*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.emit(renderer.EventFreePod)
	h.emit(renderer.EventCompleted)
	assert.Equal(t, StateAdPlaying, h.seq.State())
	assert.Zero(t, h.host.count("skip"))
}

func TestErrorAndNoAds_ContinuePlayback(t *testing.T) {
	for _, kind := range []renderer.EventKind{renderer.EventError, renderer.EventNoAdsAvailable, renderer.EventUserCancelStream} {
		t.Run(string(kind), func(t *testing.T) {
			b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 30*time.Second)})
			h := newHarness(t, b)
			startBreak(t, h, b)
			h.emit(kind)
			assert.Equal(t, StateAdPlaying, h.seq.State())
			assert.Equal(t, 1, h.host.count("PLAY:0"))
		})
	}
}

func TestFailsafe_ForcesNoCredit(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 30*time.Second), regular("r", 15*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.clock.Add(59 * time.Second)
	time.Sleep(5 * time.Millisecond)
	h.q.drain()
	assert.Equal(t, StateInteractiveOverlayActive, h.seq.State())

	h.clock.Add(time.Second)
	require.Eventually(t, func() bool { return h.q.pending() > 0 }, time.Second, time.Millisecond)
	h.q.drain()

	assert.Equal(t, StateAdPlaying, h.seq.State())
	assert.Equal(t, 1, h.host.count("PLAY:0"))
	assert.True(t, h.renderers[0].Destroyed())
	assert.Equal(t, "failsafe", h.seq.Results()[0].Reason)
	assert.False(t, h.seq.Results()[0].Credit)

	// The hung renderer finally reports; nothing changes.
	h.renderers[0].Emit(renderer.Event{Kind: renderer.EventCompleted})
	h.q.drain()
	assert.Equal(t, 1, h.host.count("PLAY:0"))
	assert.Len(t, h.seq.Results(), 1)
}

func TestFailsafe_CoversInlineInteractive(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{idvx("iv", 10*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.clock.Add(20 * time.Second)
	require.Eventually(t, func() bool { return h.q.pending() > 0 }, time.Second, time.Millisecond)
	h.q.drain()
	assert.Equal(t, StateAdPlaying, h.seq.State())
	assert.Equal(t, "failsafe", h.seq.Results()[0].Reason)
}

func TestFailsafe_CancelledByCompletion(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 30*time.Second), regular("r", 15*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)
	gen := h.seq.gen

	h.emit(renderer.EventCompleted)
	h.clock.Add(2 * time.Minute)
	time.Sleep(5 * time.Millisecond)
	h.q.drain()

	// A failsafe that was already queued when the overlay completed.
	h.seq.onFailsafe(gen)
	assert.Equal(t, 1, h.host.count("PLAY:0"))
	assert.Len(t, h.seq.Results(), 1)
	assert.Equal(t, StateAdPlaying, h.seq.State())
}

func TestMissingSurface_ImmediateNoCredit(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 30*time.Second), regular("r", 15*time.Second)})
	h := newHarness(t, b)
	h.host.surface = nil
	startBreak(t, h, b)

	assert.Equal(t, []string{"play:pre", "SEEK_AND_PAUSE:29900", "PLAY:0"}, h.host.calls)
	assert.Empty(t, h.renderers)
	assert.Equal(t, StateAdPlaying, h.seq.State())
	assert.Equal(t, "no_surface", h.seq.Results()[0].Reason)
}

func TestSeekGuard_ClampedAtZero(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 50*time.Millisecond)})
	h := newHarness(t, b)
	startBreak(t, h, b)
	assert.Contains(t, h.host.calls, "SEEK_AND_PAUSE:0")
}

func TestSeekGuard_ClampedToSegmentStart(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{
		regular("a", 10*time.Second),
		idvx("iv", 0),
		regular("c", 10*time.Second),
	})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.seq.OnMediaItemCompleted()
	require.Equal(t, StateInteractiveOverlayActive, h.seq.State())
	assert.Equal(t, []string{"play:pre", "SEEK_AND_PAUSE:10000"}, h.host.calls)
}

func TestPopup_ForwardedToHost(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 30*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)

	h.renderers[0].Emit(renderer.Event{Kind: renderer.EventPopupWebsite, URL: "https://advertiser.test"})
	h.q.drain()
	assert.Contains(t, h.host.calls, "popup:https://advertiser.test")
	assert.Equal(t, StateInteractiveOverlayActive, h.seq.State())
}

func TestSingleOverlay_AdvancingDisposesPrevious(t *testing.T) {
	b := ads.NewAdBreak("pod", 0, []ads.Ad{truex("tx1", 30*time.Second), idvx("iv2", 30*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)
	require.Len(t, h.renderers, 1)

	// The host crosses the boundary while the overlay is still up.
	h.seq.OnMediaItemCompleted()
	require.Len(t, h.renderers, 2)
	assert.True(t, h.renderers[0].Destroyed())
	assert.False(t, h.renderers[1].Destroyed())
	assert.Equal(t, StateInteractiveOverlayActive, h.seq.State())
	assert.Contains(t, h.host.calls, "SEEK_AND_PAUSE:59900")

	// Late completion from the disposed overlay is ignored.
	h.renderers[0].Emit(renderer.Event{Kind: renderer.EventCompleted})
	h.q.drain()
	assert.Equal(t, StateInteractiveOverlayActive, h.seq.State())
	assert.Zero(t, h.host.count("PLAY:0"))
}

func TestLifecycle_ForwardedToOverlay(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{truex("tx", 30*time.Second)})
	h := newHarness(t, b)
	h.seq.OnPause()
	startBreak(t, h, b)
	h.seq.OnPause()
	h.seq.OnResume()
	h.seq.OnStop()
	assert.Equal(t, []string{"init", "start", "pause", "resume", "stop", "destroy"}, h.renderers[0].Calls())

	// A released overlay no longer reaches the host.
	h.renderers[0].Emit(renderer.Event{Kind: renderer.EventPopupWebsite, URL: "https://advertiser.test"})
	h.q.drain()
	assert.NotContains(t, h.host.calls, "popup:https://advertiser.test")
}

func TestAdBreakAt_ToleranceAndIdempotence(t *testing.T) {
	pre := ads.NewAdBreak("pre", 0, []ads.Ad{regular("a", 10*time.Second)})
	mid := ads.NewAdBreak("mid", 5*time.Second, []ads.Ad{regular("b", 10*time.Second)})
	h := newHarness(t, pre, mid)

	assert.Same(t, pre, h.seq.AdBreakAt(0))
	assert.Same(t, pre, h.seq.AdBreakAt(time.Second))
	assert.Nil(t, h.seq.AdBreakAt(3*time.Second))
	assert.Same(t, mid, h.seq.AdBreakAt(4*time.Second))
	assert.Same(t, mid, h.seq.AdBreakAt(6*time.Second))
	assert.Nil(t, h.seq.AdBreakAt(6*time.Second+time.Millisecond))

	startBreak(t, h, mid)
	assert.Nil(t, h.seq.AdBreakAt(5*time.Second))
	assert.Nil(t, h.seq.AdBreakAt(5*time.Second))
}

func TestReset_MakesBreakEligibleAgain(t *testing.T) {
	b := ads.NewAdBreak("pre", 0, []ads.Ad{regular("a", 10*time.Second)})
	h := newHarness(t, b)
	startBreak(t, h, b)
	h.seq.OnMediaItemCompleted()
	require.True(t, b.Completed())
	assert.Nil(t, h.seq.AdBreakAt(0))

	b.Reset()
	assert.False(t, b.Started())
	assert.False(t, b.Completed())
	assert.Equal(t, 0, b.Index())
	require.Same(t, b, h.seq.AdBreakAt(0))

	startBreak(t, h, b)
	assert.Equal(t, StateAdPlaying, h.seq.State())
	assert.Len(t, h.host.timelines, 2)
}

func TestSelection_RejectedDuringBreak(t *testing.T) {
	a := ads.NewAdBreak("a", 0, []ads.Ad{regular("x", 10*time.Second)})
	b := ads.NewAdBreak("b", time.Minute, []ads.Ad{regular("y", 10*time.Second)})
	h := newHarness(t, a, b)

	assert.ErrorIs(t, h.seq.StartAdBreak(), ErrNoBreak)
	startBreak(t, h, a)

	err := h.seq.SetCurrentAdBreak(b)
	assert.ErrorIs(t, err, fsm.ErrInvalidTransition)
	assert.Same(t, a, h.seq.CurrentAdBreak())
	assert.ErrorIs(t, h.seq.SetCurrentAdBreak(nil), fsm.ErrInvalidTransition)

	h.seq.OnPlaybackEnded()
	require.NoError(t, h.seq.SetCurrentAdBreak(b))
	assert.Same(t, b, h.seq.CurrentAdBreak())
	assert.Equal(t, "b", h.seq.Timeline().BreakID)

	require.NoError(t, h.seq.SetCurrentAdBreak(nil))
	assert.Nil(t, h.seq.CurrentAdBreak())
	assert.Equal(t, StateIdle, h.seq.State())
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultTolerance, c.Tolerance)
	assert.Equal(t, DefaultSeekGuard, c.SeekGuard)
	assert.Equal(t, DefaultFailsafeMultiplier, c.FailsafeMultiplier)

	c = Config{SeekGuard: -time.Second}.withDefaults()
	assert.Equal(t, time.Duration(0), c.SeekGuard)

	c = Config{SeekGuard: 250 * time.Millisecond}.withDefaults()
	assert.Equal(t, 250*time.Millisecond, c.SeekGuard)
}

func TestMarkViewed_ExcludesRestoredBreaks(t *testing.T) {
	pre := ads.NewAdBreak("pre", 0, []ads.Ad{regular("a", 10*time.Second)})
	mid := ads.NewAdBreak("mid", time.Minute, []ads.Ad{regular("b", 10*time.Second)})
	h := newHarness(t, pre, mid)

	assert.Equal(t, 1, h.seq.MarkViewed([]string{"pre", "unknown"}))
	assert.Nil(t, h.seq.AdBreakAt(0))
	assert.Same(t, mid, h.seq.AdBreakAt(time.Minute))
	assert.Zero(t, h.seq.MarkViewed(nil))
}

func TestNextBreakBetween(t *testing.T) {
	pre := ads.NewAdBreak("pre", 0, []ads.Ad{regular("a", 10*time.Second)})
	mid := ads.NewAdBreak("mid", 300*time.Second, []ads.Ad{regular("b", 10*time.Second)})
	h := newHarness(t, pre, mid)

	assert.Nil(t, h.seq.NextBreakBetween(0, 296*time.Second))
	assert.Same(t, mid, h.seq.NextBreakBetween(296*time.Second, 304*time.Second))
	assert.Same(t, mid, h.seq.NextBreakBetween(299*time.Second, 300*time.Second))
	assert.Nil(t, h.seq.NextBreakBetween(300*time.Second, 310*time.Second))
}
