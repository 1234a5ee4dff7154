// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package renderer

// EventKind enumerates everything a renderer can report.
type EventKind string

const (
	EventFetchCompleted   EventKind = "fetch_completed"
	EventStarted          EventKind = "started"
	EventDisplayed        EventKind = "displayed"
	EventCompleted        EventKind = "completed"
	EventError            EventKind = "error"
	EventNoAdsAvailable   EventKind = "no_ads_available"
	EventFreePod          EventKind = "free_pod"
	EventUserCancel       EventKind = "user_cancel"
	EventOptIn            EventKind = "opt_in"
	EventOptOut           EventKind = "opt_out"
	EventSkipCardShown    EventKind = "skip_card_shown"
	EventPopupWebsite     EventKind = "popup_website"
	EventUserCancelStream EventKind = "user_cancel_stream"
)

// Event is a single notification from the renderer. URL is set for
// EventPopupWebsite; Message may carry detail for EventError.
type Event struct {
	Kind    EventKind
	URL     string
	Message string
}

func (k EventKind) String() string { return string(k) }

// Terminal reports whether the kind ends the interactive session.
func (k EventKind) Terminal() bool {
	switch k {
	case EventCompleted, EventError, EventNoAdsAvailable, EventUserCancelStream:
		return true
	default:
		return false
	}
}
