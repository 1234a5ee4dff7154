// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sequencer

import (
	"time"

	"github.com/ManuGH/adpod/internal/renderer"
)

// PlayerAction is a transport command issued to the host.
type PlayerAction string

const (
	ActionPlay         PlayerAction = "PLAY"
	ActionSeekAndPause PlayerAction = "SEEK_AND_PAUSE"
)

// Host is the playback environment the sequencer drives. Calls are made on
// the dispatcher goroutine.
type Host interface {
	// PlayMediaSource switches the player to the ad pod timeline.
	PlayMediaSource(t Timeline)
	// ControlPlayer applies action; position is only meaningful for seeks.
	ControlPlayer(action PlayerAction, position time.Duration)
	// OnAdBreakComplete leaves ad mode after the last ad played out.
	OnAdBreakComplete()
	// OnSkipToContent leaves ad mode early because credit was earned.
	OnSkipToContent()
	// HandlePopup opens url outside the player.
	HandlePopup(url string)
	// AdSurface returns the container for interactive ads, or nil when
	// none is available.
	AdSurface() renderer.Surface
}
