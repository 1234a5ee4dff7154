// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manifest loads ad break manifests.
//
// A manifest is a JSON object with an "adBreaks" array. Each break is
// scheduled either by "timeOffsetMs" (integer milliseconds) or by
// "contentPosition" (a HH:MM:SS clock string); exactly one must be present.
// Any structural problem rejects the whole manifest.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/buger/jsonparser"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/log"
	"github.com/ManuGH/adpod/internal/metrics"
)

const (
	// DefaultAdDuration applies when neither the break nor the ad declares one.
	DefaultAdDuration = 30 * time.Second

	keyAdBreaks        = "adBreaks"
	keyBreakID         = "breakId"
	keyTimeOffsetMs    = "timeOffsetMs"
	keyContentPosition = "contentPosition"
	keyVideoAdDuration = "videoAdDuration"
	keyAds             = "ads"
	keyAdID            = "id"
	keyAdSystem        = "adSystem"
	keyMediaFile       = "mediaFile"
	keyDescription     = "description"
	keyAdParameters    = "adParameters"
	keyDuration        = "duration"
)

// LoadFile reads and parses the manifest at path.
func LoadFile(path string) ([]*ads.AdBreak, error) {
	// #nosec G304 -- manifest paths are provided by the operator via CLI/config
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		metrics.RecordManifestLoad("read_error")
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	breaks, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return breaks, nil
}

// Parse decodes a manifest document and returns its breaks sorted by offset.
// Breaks sharing an offset keep their manifest order.
func Parse(data []byte) ([]*ads.AdBreak, error) {
	breaks, err := parse(data)
	if err != nil {
		metrics.RecordManifestLoad("invalid")
		return nil, err
	}
	metrics.RecordManifestLoad("ok")

	logger := log.WithComponent("manifest")
	for i := 1; i < len(breaks); i++ {
		prev, cur := breaks[i-1], breaks[i]
		if cur.Offset == prev.Offset || cur.Offset < prev.Offset+prev.TotalDuration() {
			logger.Warn().
				Str(log.FieldEvent, "manifest.overlapping_breaks").
				Str("first", prev.ID).
				Str("second", cur.ID).
				Int64(log.FieldOffsetMS, cur.Offset.Milliseconds()).
				Int64("first_end_ms", (prev.Offset + prev.TotalDuration()).Milliseconds()).
				Msg("ad break starts before the previous one ends")
		}
	}
	logger.Debug().
		Str(log.FieldEvent, "manifest.loaded").
		Int(log.FieldBreakCount, len(breaks)).
		Msg("parsed ad breaks")
	return breaks, nil
}

func parse(data []byte) ([]*ads.AdBreak, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformed)
	}

	value, typ, _, err := jsonparser.Get(data, keyAdBreaks)
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, keyAdBreaks)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if typ != jsonparser.Array {
		return nil, fmt.Errorf("%w: %s must be an array, got %s", ErrInvalidField, keyAdBreaks, typ)
	}

	var (
		breaks   []*ads.AdBreak
		firstErr error
		i        int
	)
	_, err = jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
		defer func() { i++ }()
		if firstErr != nil {
			return
		}
		if itemType != jsonparser.Object {
			firstErr = fmt.Errorf("%w: %s[%d] must be an object", ErrInvalidField, keyAdBreaks, i)
			return
		}
		b, err := parseBreak(item)
		if err != nil {
			firstErr = fmt.Errorf("%s[%d]: %w", keyAdBreaks, i, err)
			return
		}
		breaks = append(breaks, b)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(breaks, func(a, b int) bool {
		return breaks[a].Offset < breaks[b].Offset
	})
	return breaks, nil
}

func parseBreak(data []byte) (*ads.AdBreak, error) {
	id, ok, err := optString(data, keyBreakID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, keyBreakID)
	}

	offset, err := parseOffset(data)
	if err != nil {
		return nil, err
	}

	defaultDuration := DefaultAdDuration
	if d, ok, err := optSeconds(data, keyVideoAdDuration); err != nil {
		return nil, err
	} else if ok {
		defaultDuration = d
	}

	value, typ, _, err := jsonparser.Get(data, keyAds)
	if err != nil || typ == jsonparser.Null {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, keyAds)
	}
	if typ != jsonparser.Array {
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidField, keyAds)
	}

	var (
		items    []ads.Ad
		firstErr error
		j        int
	)
	_, err = jsonparser.ArrayEach(value, func(item []byte, itemType jsonparser.ValueType, _ int, _ error) {
		defer func() { j++ }()
		if firstErr != nil {
			return
		}
		if itemType != jsonparser.Object {
			firstErr = fmt.Errorf("%w: %s[%d] must be an object", ErrInvalidField, keyAds, j)
			return
		}
		ad, err := parseAd(item, j, defaultDuration)
		if err != nil {
			firstErr = fmt.Errorf("%s[%d]: %w", keyAds, j, err)
			return
		}
		items = append(items, ad)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return ads.NewAdBreak(id, offset, items), nil
}

func parseOffset(data []byte) (time.Duration, error) {
	_, msType, _, msErr := jsonparser.Get(data, keyTimeOffsetMs)
	_, posType, _, posErr := jsonparser.Get(data, keyContentPosition)
	hasMs := msErr == nil
	hasPos := posErr == nil

	switch {
	case hasMs && hasPos:
		return 0, ErrAmbiguousOffset
	case hasMs:
		if msType != jsonparser.Number {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidOffset, keyTimeOffsetMs)
		}
		ms, err := jsonparser.GetInt(data, keyTimeOffsetMs)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidOffset, keyTimeOffsetMs, err)
		}
		if ms < 0 {
			return 0, fmt.Errorf("%w: %s is negative", ErrInvalidOffset, keyTimeOffsetMs)
		}
		if ms > maxUnits(time.Millisecond) {
			return 0, fmt.Errorf("%w: %s %d is out of range", ErrInvalidOffset, keyTimeOffsetMs, ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	case hasPos:
		if posType != jsonparser.String {
			return 0, fmt.Errorf("%w: %s must be a clock string", ErrInvalidOffset, keyContentPosition)
		}
		s, err := jsonparser.GetString(data, keyContentPosition)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidOffset, keyContentPosition, err)
		}
		return ParseClock(s)
	default:
		return 0, fmt.Errorf("%w: %s or %s", ErrMissingField, keyTimeOffsetMs, keyContentPosition)
	}
}

func parseAd(data []byte, position int, defaultDuration time.Duration) (ads.Ad, error) {
	id := "ad-" + strconv.Itoa(position)
	if raw, typ, _, err := jsonparser.Get(data, keyAdID); err == nil {
		switch typ {
		case jsonparser.String:
			s, perr := jsonparser.ParseString(raw)
			if perr != nil {
				return ads.Ad{}, fmt.Errorf("%w: %s: %v", ErrInvalidField, keyAdID, perr)
			}
			id = s
		case jsonparser.Number:
			id = string(raw)
		}
	}

	adSystem := ads.AdSystemDefault
	if s, ok, err := optString(data, keyAdSystem); err != nil {
		return ads.Ad{}, err
	} else if ok {
		adSystem = s
	}

	mediaFile, _, err := optString(data, keyMediaFile)
	if err != nil {
		return ads.Ad{}, err
	}
	description, _, err := optString(data, keyDescription)
	if err != nil {
		return ads.Ad{}, err
	}

	var parameters json.RawMessage
	if raw, typ, _, err := jsonparser.Get(data, keyAdParameters); err == nil && typ != jsonparser.Null {
		if typ != jsonparser.Object {
			return ads.Ad{}, fmt.Errorf("%w: %s must be an object", ErrInvalidField, keyAdParameters)
		}
		parameters = append(json.RawMessage(nil), raw...)
	}

	duration := defaultDuration
	if d, ok, err := optSeconds(data, keyDuration); err != nil {
		return ads.Ad{}, err
	} else if ok {
		duration = d
	}

	return ads.NewAd(id, adSystem, unescapeText(mediaFile), unescapeText(description), parameters, duration), nil
}

// optString returns the string at key; null and absent are reported as !ok.
func optString(data []byte, key string) (string, bool, error) {
	raw, typ, _, err := jsonparser.Get(data, key)
	if err != nil || typ == jsonparser.Null {
		return "", false, nil
	}
	if typ != jsonparser.String {
		return "", false, fmt.Errorf("%w: %s must be a string", ErrInvalidField, key)
	}
	s, err := jsonparser.ParseString(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrInvalidField, key, err)
	}
	return s, true, nil
}

// optInt returns the non-negative integer at key; null and absent are reported as !ok.
func optInt(data []byte, key string) (int64, bool, error) {
	raw, typ, _, err := jsonparser.Get(data, key)
	if err != nil || typ == jsonparser.Null {
		return 0, false, nil
	}
	if typ != jsonparser.Number {
		return 0, false, fmt.Errorf("%w: %s must be a number", ErrInvalidField, key)
	}
	n, err := jsonparser.ParseInt(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s: %v", ErrInvalidField, key, err)
	}
	if n < 0 {
		return 0, false, fmt.Errorf("%w: %s is negative", ErrInvalidField, key)
	}
	return n, true, nil
}

// optSeconds reads a whole-second duration at key.
func optSeconds(data []byte, key string) (time.Duration, bool, error) {
	secs, ok, err := optInt(data, key)
	if err != nil || !ok {
		return 0, false, err
	}
	if secs > maxUnits(time.Second) {
		return 0, false, fmt.Errorf("%w: %s %d is out of range", ErrInvalidField, key, secs)
	}
	return time.Duration(secs) * time.Second, true, nil
}

// maxUnits is the largest count of unit that fits in a time.Duration.
func maxUnits(unit time.Duration) int64 {
	return math.MaxInt64 / int64(unit)
}
