// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ads

import "time"

// AdBreak is an ordered pod of ads scheduled at one content position.
// Playback state is mutated only by the sequencer.
type AdBreak struct {
	ID     string
	Offset time.Duration
	Ads    []Ad

	started   bool
	completed bool
	index     int
}

// NewAdBreak returns a break that has not been started.
func NewAdBreak(id string, offset time.Duration, items []Ad) *AdBreak {
	return &AdBreak{ID: id, Offset: offset, Ads: items}
}

func (b *AdBreak) Started() bool   { return b.started }
func (b *AdBreak) Completed() bool { return b.completed }
func (b *AdBreak) Index() int      { return b.index }

// MarkStarted flags the break as started and rewinds it to the first ad.
func (b *AdBreak) MarkStarted() {
	b.started = true
	b.index = 0
}

// MarkCompleted flags the break as done; no further ads are launched from it.
func (b *AdBreak) MarkCompleted() {
	b.completed = true
}

// Rewind moves the cursor back to the first ad without touching the flags.
func (b *AdBreak) Rewind() {
	b.index = 0
}

// Reset makes the break eligible for playback again.
func (b *AdBreak) Reset() {
	b.started = false
	b.completed = false
	b.index = 0
}

// CurrentAd returns the ad under the cursor, or nil past the end.
func (b *AdBreak) CurrentAd() *Ad {
	if b.index < len(b.Ads) {
		return &b.Ads[b.index]
	}
	return nil
}

// Advance moves the cursor forward and returns the new current ad.
// The cursor never moves beyond len(Ads).
func (b *AdBreak) Advance() *Ad {
	if b.index < len(b.Ads) {
		b.index++
	}
	return b.CurrentAd()
}

// EndOfAd is the position in the concatenated pod timeline where ad i ends.
func (b *AdBreak) EndOfAd(i int) time.Duration {
	var end time.Duration
	for j := 0; j <= i && j < len(b.Ads); j++ {
		end += b.Ads[j].Duration
	}
	return end
}

// TotalDuration is the declared length of the whole pod.
func (b *AdBreak) TotalDuration() time.Duration {
	return b.EndOfAd(len(b.Ads) - 1)
}

// HasInteractive reports whether any ad in the pod needs the interactive renderer.
func (b *AdBreak) HasInteractive() bool {
	for i := range b.Ads {
		if b.Ads[i].IsInteractive() {
			return true
		}
	}
	return false
}

// Status is a read-only view of a break used by reports and the status API.
type Status struct {
	ID        string `json:"breakId"`
	OffsetMS  int64  `json:"offsetMs"`
	AdCount   int    `json:"adCount"`
	Index     int    `json:"index"`
	Started   bool   `json:"started"`
	Completed bool   `json:"completed"`
}

// Status snapshots the break.
func (b *AdBreak) Status() Status {
	return Status{
		ID:        b.ID,
		OffsetMS:  b.Offset.Milliseconds(),
		AdCount:   len(b.Ads),
		Index:     b.index,
		Started:   b.started,
		Completed: b.completed,
	}
}
