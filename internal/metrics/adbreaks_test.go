// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdBreak_NormalizesLabels(t *testing.T) {
	before := testutil.ToFloat64(adBreakTotal.WithLabelValues("skipped"))
	RecordAdBreak(" Skipped ")
	assert.Equal(t, before+1, testutil.ToFloat64(adBreakTotal.WithLabelValues("skipped")))

	unknownBefore := testutil.ToFloat64(adBreakTotal.WithLabelValues(labelUnknown))
	RecordAdBreak("exploded")
	assert.Equal(t, unknownBefore+1, testutil.ToFloat64(adBreakTotal.WithLabelValues(labelUnknown)))
}

func TestRecordInteractiveCompletion(t *testing.T) {
	before := testutil.ToFloat64(interactiveCompletionTotal.WithLabelValues("truex", "credit"))
	RecordInteractiveCompletion("TRUEX", "credit", 12*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(interactiveCompletionTotal.WithLabelValues("truex", "credit")))
}

func TestSetSequencerState_OneHot(t *testing.T) {
	SetSequencerState("ad_playing")
	assert.Equal(t, 1.0, testutil.ToFloat64(sequencerState.WithLabelValues("ad_playing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sequencerState.WithLabelValues("idle")))

	SetSequencerState("idle")
	assert.Equal(t, 0.0, testutil.ToFloat64(sequencerState.WithLabelValues("ad_playing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sequencerState.WithLabelValues("idle")))
}

func TestRecordRendererEventAndManifestLoad(t *testing.T) {
	before := testutil.ToFloat64(rendererEventTotal.WithLabelValues("free_pod"))
	RecordRendererEvent("free_pod")
	assert.Equal(t, before+1, testutil.ToFloat64(rendererEventTotal.WithLabelValues("free_pod")))

	okBefore := testutil.ToFloat64(manifestLoadTotal.WithLabelValues("ok"))
	RecordManifestLoad("ok")
	assert.Equal(t, okBefore+1, testutil.ToFloat64(manifestLoadTotal.WithLabelValues("ok")))
}
