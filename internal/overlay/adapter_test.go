// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package overlay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/renderer/stub"
	"github.com/ManuGH/adpod/internal/runloop"
)

type outcome struct {
	completions []bool
	popups      []string
}

func newAdapter(t *testing.T, opts Options) (*Adapter, *stub.Renderer, *outcome) {
	t.Helper()
	r := stub.New(stub.ScriptHang, time.Hour, clock.NewMock())
	out := &outcome{}
	a := New(r, runloop.Inline{}, opts, Callbacks{
		OnComplete: func(credit bool) { out.completions = append(out.completions, credit) },
		OnPopup:    func(url string) { out.popups = append(out.popups, url) },
	})
	return a, r, out
}

var (
	truexAd = ads.NewAd("ad-tx", ads.AdSystemTruex, "https://cdn.test/tx.mp4",
		"https://qa-get.truex.com/vast/config", nil, 30*time.Second)
	idvxAd = ads.NewAd("ad-idvx", ads.AdSystemIDVx, "https://cdn.test/idvx.mp4",
		"", json.RawMessage(`{"vast_config_url":"https://get.truex.com/x"}`), 30*time.Second)
	surface = renderer.NamedSurface("ad-container")
)

func TestAdapter_EventMapping(t *testing.T) {
	tests := []struct {
		name   string
		ad     ads.Ad
		events []renderer.Event
		want   []bool
	}{
		{"completed without credit", truexAd, []renderer.Event{{Kind: renderer.EventStarted}, {Kind: renderer.EventCompleted}}, []bool{false}},
		{"free pod then completed", truexAd, []renderer.Event{{Kind: renderer.EventFreePod}, {Kind: renderer.EventCompleted}}, []bool{true}},
		{"free pod then error keeps latch", truexAd, []renderer.Event{{Kind: renderer.EventFreePod}, {Kind: renderer.EventError}}, []bool{true}},
		{"no ads available", truexAd, []renderer.Event{{Kind: renderer.EventNoAdsAvailable}}, []bool{false}},
		{"cancel stream discards credit", truexAd, []renderer.Event{{Kind: renderer.EventFreePod}, {Kind: renderer.EventUserCancelStream}}, []bool{false}},
		{"free pod ignored for inline kind", idvxAd, []renderer.Event{{Kind: renderer.EventFreePod}, {Kind: renderer.EventCompleted}}, []bool{false}},
		{"free pod alone does not complete", truexAd, []renderer.Event{{Kind: renderer.EventFreePod}}, nil},
		{"informational events ignored", truexAd, []renderer.Event{
			{Kind: renderer.EventFetchCompleted}, {Kind: renderer.EventOptIn}, {Kind: renderer.EventOptOut},
			{Kind: renderer.EventSkipCardShown}, {Kind: renderer.EventUserCancel}, {Kind: renderer.EventDisplayed},
		}, nil},
		{"completes at most once", truexAd, []renderer.Event{{Kind: renderer.EventCompleted}, {Kind: renderer.EventError}, {Kind: renderer.EventCompleted}}, []bool{false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, r, out := newAdapter(t, Options{})
			require.NoError(t, a.Start(surface, tt.ad))
			for _, ev := range tt.events {
				r.Emit(ev)
			}
			assert.Equal(t, tt.want, out.completions)
		})
	}
}

func TestAdapter_PopupForwardedWithoutCompleting(t *testing.T) {
	a, r, out := newAdapter(t, Options{})
	require.NoError(t, a.Start(surface, truexAd))
	r.Emit(renderer.Event{Kind: renderer.EventPopupWebsite, URL: "https://advertiser.test"})
	assert.Equal(t, []string{"https://advertiser.test"}, out.popups)
	assert.Empty(t, out.completions)
	assert.False(t, a.Completed())
}

func TestAdapter_InitChoosesInlineConfig(t *testing.T) {
	a, r, _ := newAdapter(t, Options{SupportsUserCancelStream: true})
	require.NoError(t, a.Start(surface, idvxAd))
	cfg, opts := r.Config()
	assert.Empty(t, cfg.URL)
	assert.JSONEq(t, string(idvxAd.Parameters), string(cfg.Inline))
	assert.False(t, opts.SupportsUserCancelStream, "inline kind never offers cancel stream")
	assert.NotEmpty(t, opts.FallbackAdvertisingID)
	assert.Equal(t, []string{"init", "start"}, r.Calls())
}

func TestAdapter_InitUsesConfigURL(t *testing.T) {
	a, r, _ := newAdapter(t, Options{SupportsUserCancelStream: true, UserAdvertisingID: "ifa-1"})
	require.NoError(t, a.Start(surface, truexAd))
	cfg, opts := r.Config()
	assert.Equal(t, truexAd.ConfigURL, cfg.URL)
	assert.True(t, opts.SupportsUserCancelStream)
	assert.Equal(t, "ifa-1", opts.UserAdvertisingID)
}

func TestAdapter_FallbackIDFreshPerSession(t *testing.T) {
	a1, r1, _ := newAdapter(t, Options{})
	a2, r2, _ := newAdapter(t, Options{})
	require.NoError(t, a1.Start(surface, truexAd))
	require.NoError(t, a2.Start(surface, truexAd))
	_, o1 := r1.Config()
	_, o2 := r2.Config()
	assert.NotEqual(t, o1.FallbackAdvertisingID, o2.FallbackAdvertisingID)
}

func TestAdapter_DestroyIsIdempotentAndSilencesLateEvents(t *testing.T) {
	a, r, out := newAdapter(t, Options{})
	require.NoError(t, a.Start(surface, truexAd))

	a.Destroy()
	a.Destroy()
	assert.True(t, a.Destroyed())
	assert.True(t, r.Destroyed())
	assert.Equal(t, 0, r.Subscribers())

	// A callback already in flight when Destroy ran.
	a.Handle(renderer.Event{Kind: renderer.EventCompleted})
	assert.Empty(t, out.completions)

	assert.ErrorIs(t, a.Start(surface, truexAd), ErrDestroyed)
	assert.Equal(t, []string{"init", "start", "stop", "destroy"}, r.Calls())
}

func TestAdapter_LifecycleForwarding(t *testing.T) {
	a, r, _ := newAdapter(t, Options{})
	a.Pause()
	require.NoError(t, a.Start(surface, truexAd))
	a.Pause()
	a.Resume()
	a.Stop()
	assert.Equal(t, []string{"init", "start", "pause", "resume", "stop"}, r.Calls())
	assert.ErrorIs(t, a.Start(surface, truexAd), ErrAlreadyStarted)
}

func TestAdapter_StartFailsWithoutSurface(t *testing.T) {
	a, _, _ := newAdapter(t, Options{})
	err := a.Start(nil, truexAd)
	assert.ErrorIs(t, err, renderer.ErrNoSurface)
}

func TestAdapter_EndToEndWithScriptedRenderer(t *testing.T) {
	mock := clock.NewMock()
	loop := runloop.New()
	r := stub.New(stub.ScriptCredit, 10*time.Millisecond, mock)
	credits := make(chan bool, 1)
	a := New(r, loop, Options{}, Callbacks{OnComplete: func(c bool) { credits <- c }})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var startErr error
	require.NoError(t, loop.Do(ctx, func() { startErr = a.Start(surface, truexAd) }))
	require.NoError(t, startErr)
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)
		return len(credits) == 1
	}, 2*time.Second, time.Millisecond)
	assert.True(t, <-credits)
}
