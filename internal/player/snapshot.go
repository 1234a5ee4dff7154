// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/sequencer"
)

// Snapshot is a point-in-time view of a session for reports and the API.
type Snapshot struct {
	Session           string             `json:"session"`
	Mode              Mode               `json:"mode"`
	State             sequencer.State    `json:"state"`
	Paused            bool               `json:"paused"`
	Finished          bool               `json:"finished"`
	ContentPositionMS int64              `json:"contentPositionMs"`
	ContentDurationMS int64              `json:"contentDurationMs"`
	AdPositionMS      int64              `json:"adPositionMs,omitempty"`
	CurrentBreak      *ads.Status        `json:"currentBreak,omitempty"`
	Breaks            []ads.Status       `json:"breaks"`
	Outcomes          []BreakOutcome     `json:"outcomes"`
	Interactive       []sequencer.Result `json:"interactive"`
}

// Snapshot captures the session state. It must run on the executor.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Session:           s.opts.SessionKey,
		Mode:              s.mode,
		State:             s.seq.State(),
		Paused:            s.paused,
		Finished:          s.finished,
		ContentPositionMS: s.contentPos.Milliseconds(),
		ContentDurationMS: s.opts.ContentDuration.Milliseconds(),
		Outcomes:          append([]BreakOutcome{}, s.outcomes...),
		Interactive:       s.seq.Results(),
	}
	if s.mode != ModeContent {
		snap.AdPositionMS = s.adPos.Milliseconds()
	}
	if b := s.seq.CurrentAdBreak(); b != nil && s.mode != ModeContent {
		st := b.Status()
		snap.CurrentBreak = &st
	}
	playlist := s.seq.Playlist()
	snap.Breaks = make([]ads.Status, 0, len(playlist))
	for _, b := range playlist {
		snap.Breaks = append(snap.Breaks, b.Status())
	}
	if snap.Interactive == nil {
		snap.Interactive = []sequencer.Result{}
	}
	return snap
}

// Status captures a snapshot from any goroutine.
func (s *Session) Status(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.exec.Do(ctx, func() { snap = s.Snapshot() })
	return snap, err
}
