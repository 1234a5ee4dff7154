// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ads holds the ad break data model shared by the manifest loader,
// the sequencer and the playback host.
package ads

// AdType classifies an ad by the system that serves it.
type AdType string

const (
	// Regular is a plain linear video ad.
	Regular AdType = "REGULAR"
	// Truex is a choice-card interactive ad that can earn credit for the whole break.
	Truex AdType = "TRUEX"
	// IDVx is an inline interactive ad that never earns credit.
	IDVx AdType = "IDVX"
)

// Ad system tags recognised by ClassifyAdSystem. Matching is case-sensitive.
const (
	AdSystemTruex   = "trueX"
	AdSystemIDVx    = "IDVx"
	AdSystemDefault = "GDFP"
)

// ClassifyAdSystem maps an ad system tag to its AdType. Unknown tags are Regular.
func ClassifyAdSystem(adSystem string) AdType {
	switch adSystem {
	case AdSystemTruex:
		return Truex
	case AdSystemIDVx:
		return IDVx
	default:
		return Regular
	}
}

// IsInteractive reports whether the type needs the interactive renderer.
func (t AdType) IsInteractive() bool {
	return t == Truex || t == IDVx
}

func (t AdType) String() string {
	return string(t)
}
