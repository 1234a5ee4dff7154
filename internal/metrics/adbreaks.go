// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus instruments for ad playback.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const labelUnknown = "unknown"

var (
	adBreakTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpod_ad_break_total",
		Help: "Ad break lifecycle transitions by outcome (started, completed, skipped)",
	}, []string{"outcome"})

	interactiveCompletionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpod_interactive_completion_total",
		Help: "Interactive ad completions by ad type and outcome",
	}, []string{"ad_type", "outcome"})

	interactiveDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adpod_interactive_duration_seconds",
		Help:    "Time from interactive overlay launch to completion",
		Buckets: []float64{1, 5, 10, 15, 30, 45, 60, 90, 120, 240},
	}, []string{"ad_type"})

	failsafeFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adpod_failsafe_fired_total",
		Help: "Interactive ads forcibly completed by the failsafe timer",
	})

	rendererEventTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpod_renderer_event_total",
		Help: "Events received from the interactive renderer by kind",
	}, []string{"event"})

	manifestLoadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adpod_manifest_load_total",
		Help: "Manifest load attempts by result",
	}, []string{"result"})

	sequencerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "adpod_sequencer_state",
		Help: "Current sequencer state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	knownSequencerStates = []string{
		"idle", "break_selected", "break_started", "ad_playing",
		"interactive_overlay_active", "break_complete", "break_skipped",
	}
)

// RecordAdBreak counts a break lifecycle transition.
func RecordAdBreak(outcome string) {
	adBreakTotal.WithLabelValues(normalize(outcome, "started", "completed", "skipped")).Inc()
}

// RecordInteractiveCompletion counts how an interactive ad ended and how long it ran.
func RecordInteractiveCompletion(adType, outcome string, elapsed time.Duration) {
	t := normalize(adType, "truex", "idvx")
	interactiveCompletionTotal.WithLabelValues(t, normalize(outcome, "credit", "no_credit", "failsafe", "no_surface")).Inc()
	if elapsed > 0 {
		interactiveDurationSeconds.WithLabelValues(t).Observe(elapsed.Seconds())
	}
}

// RecordFailsafe counts one failsafe expiry.
func RecordFailsafe() {
	failsafeFiredTotal.Inc()
}

// RecordRendererEvent counts one renderer event.
func RecordRendererEvent(kind string) {
	rendererEventTotal.WithLabelValues(normalize(kind,
		"fetch_completed", "started", "displayed", "completed", "error", "no_ads_available",
		"free_pod", "user_cancel", "opt_in", "opt_out", "skip_card_shown", "popup_website",
		"user_cancel_stream",
	)).Inc()
}

// RecordManifestLoad counts one manifest load attempt.
func RecordManifestLoad(result string) {
	manifestLoadTotal.WithLabelValues(normalize(result, "ok", "invalid", "read_error")).Inc()
}

// SetSequencerState marks state as the active sequencer state.
func SetSequencerState(state string) {
	active := normalize(state, knownSequencerStates...)
	for _, s := range knownSequencerStates {
		v := 0.0
		if s == active {
			v = 1
		}
		sequencerState.WithLabelValues(s).Set(v)
	}
}

func normalize(v string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return labelUnknown
}
