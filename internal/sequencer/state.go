// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sequencer

import "github.com/ManuGH/adpod/internal/fsm"

// State is the sequencer's position in the ad break lifecycle.
type State string

const (
	StateIdle                     State = "idle"
	StateBreakSelected            State = "break_selected"
	StateBreakStarted             State = "break_started"
	StateAdPlaying                State = "ad_playing"
	StateInteractiveOverlayActive State = "interactive_overlay_active"
	StateBreakComplete            State = "break_complete"
	StateBreakSkipped             State = "break_skipped"
)

// Terminal reports whether the current break is finished.
func (s State) Terminal() bool {
	return s == StateBreakComplete || s == StateBreakSkipped
}

// InBreak reports whether a break is being played.
func (s State) InBreak() bool {
	switch s {
	case StateBreakStarted, StateAdPlaying, StateInteractiveOverlayActive:
		return true
	default:
		return false
	}
}

// Event drives State transitions.
type Event string

const (
	EventSelect        Event = "select"
	EventClear         Event = "clear"
	EventStart         Event = "start"
	EventAdBegin       Event = "ad_begin"
	EventOverlayLaunch Event = "overlay_launch"
	EventOverlayDone   Event = "overlay_done"
	EventCredit        Event = "credit"
	EventComplete      Event = "complete"
)

var transitions = []fsm.Transition[State, Event]{
	{From: StateIdle, Event: EventSelect, To: StateBreakSelected},
	{From: StateBreakComplete, Event: EventSelect, To: StateBreakSelected},
	{From: StateBreakSkipped, Event: EventSelect, To: StateBreakSelected},

	{From: StateBreakSelected, Event: EventClear, To: StateIdle},
	{From: StateBreakComplete, Event: EventClear, To: StateIdle},
	{From: StateBreakSkipped, Event: EventClear, To: StateIdle},

	{From: StateBreakSelected, Event: EventStart, To: StateBreakStarted},

	{From: StateBreakStarted, Event: EventAdBegin, To: StateAdPlaying},
	{From: StateAdPlaying, Event: EventAdBegin, To: StateAdPlaying},

	{From: StateBreakStarted, Event: EventOverlayLaunch, To: StateInteractiveOverlayActive},
	{From: StateAdPlaying, Event: EventOverlayLaunch, To: StateInteractiveOverlayActive},

	{From: StateInteractiveOverlayActive, Event: EventOverlayDone, To: StateAdPlaying},
	{From: StateInteractiveOverlayActive, Event: EventCredit, To: StateBreakSkipped},

	{From: StateBreakStarted, Event: EventComplete, To: StateBreakComplete},
	{From: StateAdPlaying, Event: EventComplete, To: StateBreakComplete},
}

func mustMachine() *fsm.Machine[State, Event] {
	m, err := fsm.New(StateIdle, transitions)
	if err != nil {
		panic(err)
	}
	return m
}
