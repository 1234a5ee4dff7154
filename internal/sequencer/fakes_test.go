// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sequencer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/renderer/stub"
)

// queue is a dispatcher drained explicitly by the test goroutine, so timer
// and renderer callbacks never race with assertions.
type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) Post(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

func (q *queue) drain() int {
	n := 0
	for {
		q.mu.Lock()
		fns := q.fns
		q.fns = nil
		q.mu.Unlock()
		if len(fns) == 0 {
			return n
		}
		for _, fn := range fns {
			fn()
			n++
		}
	}
}

func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

type fakeHost struct {
	calls     []string
	timelines []Timeline
	surface   renderer.Surface
}

func (h *fakeHost) PlayMediaSource(t Timeline) {
	h.timelines = append(h.timelines, t)
	h.calls = append(h.calls, fmt.Sprintf("play:%s", t.BreakID))
}

func (h *fakeHost) ControlPlayer(a PlayerAction, pos time.Duration) {
	h.calls = append(h.calls, fmt.Sprintf("%s:%d", a, pos.Milliseconds()))
}

func (h *fakeHost) OnAdBreakComplete()     { h.calls = append(h.calls, "complete") }
func (h *fakeHost) OnSkipToContent()       { h.calls = append(h.calls, "skip") }
func (h *fakeHost) HandlePopup(url string) { h.calls = append(h.calls, "popup:"+url) }
func (h *fakeHost) AdSurface() renderer.Surface {
	return h.surface
}

func (h *fakeHost) count(call string) int {
	n := 0
	for _, c := range h.calls {
		if c == call {
			n++
		}
	}
	return n
}

type harness struct {
	t         *testing.T
	seq       *Sequencer
	host      *fakeHost
	q         *queue
	clock     *clock.Mock
	renderers []*stub.Renderer
}

func newHarness(t *testing.T, breaks ...*ads.AdBreak) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		host:  &fakeHost{surface: renderer.NamedSurface("ad-container")},
		q:     &queue{},
		clock: clock.NewMock(),
	}
	h.seq = New(h.host, Options{
		Dispatcher: h.q,
		Clock:      h.clock,
		Renderers: func() renderer.Renderer {
			r := stub.New(stub.ScriptHang, 24*time.Hour, h.clock)
			h.renderers = append(h.renderers, r)
			return r
		},
	})
	h.seq.SetPlaylist(breaks)
	return h
}

// emit delivers a renderer event to the newest overlay and runs the
// resulting callbacks.
func (h *harness) emit(kind renderer.EventKind) {
	h.t.Helper()
	if len(h.renderers) == 0 {
		h.t.Fatal("no renderer created")
	}
	h.renderers[len(h.renderers)-1].Emit(renderer.Event{Kind: kind})
	h.q.drain()
}

func regular(id string, d time.Duration) ads.Ad {
	return ads.NewAd(id, ads.AdSystemDefault, "https://cdn.test/"+id+".mp4", "", nil, d)
}

func truex(id string, d time.Duration) ads.Ad {
	return ads.NewAd(id, ads.AdSystemTruex, "https://cdn.test/"+id+".mp4", "https://config.test/"+id, nil, d)
}

func idvx(id string, d time.Duration) ads.Ad {
	return ads.NewAd(id, ads.AdSystemIDVx, "https://cdn.test/"+id+".mp4", "https://config.test/"+id, nil, d)
}
