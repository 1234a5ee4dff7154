// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sequencer

import (
	"time"

	"github.com/ManuGH/adpod/internal/ads"
)

// Segment is one ad's slot in the concatenated pod timeline. Placeholder
// reserves the ad's declared duration while interactive or real media loads.
type Segment struct {
	AdID        string        `json:"adId"`
	URL         string        `json:"url"`
	Placeholder time.Duration `json:"placeholder"`
	Interactive bool          `json:"interactive"`
}

// Timeline is the playable media source for one break.
type Timeline struct {
	BreakID  string    `json:"breakId"`
	Segments []Segment `json:"segments"`
}

// BuildTimeline concatenates the break's ads in order.
func BuildTimeline(b *ads.AdBreak) Timeline {
	t := Timeline{BreakID: b.ID, Segments: make([]Segment, 0, len(b.Ads))}
	for _, ad := range b.Ads {
		t.Segments = append(t.Segments, Segment{
			AdID:        ad.ID,
			URL:         ad.MediaFile,
			Placeholder: ad.Duration,
			Interactive: ad.IsInteractive(),
		})
	}
	return t
}

// Duration is the sum of all placeholders.
func (t Timeline) Duration() time.Duration {
	var d time.Duration
	for _, s := range t.Segments {
		d += s.Placeholder
	}
	return d
}

// SegmentAt returns the index of the segment covering pos, or len(Segments)
// when pos is at or beyond the end.
func (t Timeline) SegmentAt(pos time.Duration) int {
	var end time.Duration
	for i, s := range t.Segments {
		end += s.Placeholder
		if pos < end {
			return i
		}
	}
	return len(t.Segments)
}

// SegmentStart is the timeline position where segment i begins.
func (t Timeline) SegmentStart(i int) time.Duration {
	var start time.Duration
	for j := 0; j < i && j < len(t.Segments); j++ {
		start += t.Segments[j].Placeholder
	}
	return start
}
