// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ads

import (
	"encoding/json"
	"time"
)

// Ad is one creative within an ad break. It is immutable after construction.
type Ad struct {
	ID         string
	AdSystem   string
	MediaFile  string          // fallback / placeholder video
	ConfigURL  string          // interactive config fetch URL (manifest "description")
	Parameters json.RawMessage // inline interactive config (manifest "adParameters")
	Duration   time.Duration
	Type       AdType
}

// NewAd builds an Ad and classifies it from its ad system tag.
func NewAd(id, adSystem, mediaFile, configURL string, parameters json.RawMessage, duration time.Duration) Ad {
	return Ad{
		ID:         id,
		AdSystem:   adSystem,
		MediaFile:  mediaFile,
		ConfigURL:  configURL,
		Parameters: parameters,
		Duration:   duration,
		Type:       ClassifyAdSystem(adSystem),
	}
}

// IsInteractive reports whether the ad is rendered by the interactive SDK.
func (a Ad) IsInteractive() bool { return a.Type.IsInteractive() }

// IsRegular reports whether the ad is a plain linear video.
func (a Ad) IsRegular() bool { return a.Type == Regular }

// IsCreditBearing reports whether completing the ad can skip the rest of the break.
func (a Ad) IsCreditBearing() bool { return a.Type == Truex }

// HasInlineConfig reports whether the ad carries an inline JSON configuration.
func (a Ad) HasInlineConfig() bool { return len(a.Parameters) > 0 }

// VastConfigURL is the URL the interactive renderer fetches its config from.
func (a Ad) VastConfigURL() string { return a.ConfigURL }

// MediaURL is the video played in the ad's timeline slot.
func (a Ad) MediaURL() string { return a.MediaFile }
