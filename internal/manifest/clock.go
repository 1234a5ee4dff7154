// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manifest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock converts "HH:MM:SS", "MM:SS" or "SS" into a duration.
// Fields are accumulated right to left in base 60, so "90" is 90s and
// "01:02:03" is 3723s.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty clock value", ErrInvalidOffset)
	}
	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("%w: %q has more than three fields", ErrInvalidOffset, s)
	}

	var seconds int64
	for _, f := range fields {
		if f == "" {
			return 0, fmt.Errorf("%w: %q has an empty field", ErrInvalidOffset, s)
		}
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidOffset, s, err)
		}
		seconds = seconds*60 + int64(n)
		if seconds > maxUnits(time.Second) {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidOffset, s)
		}
	}
	return time.Duration(seconds) * time.Second, nil
}

// FormatClock renders d as HH:MM:SS, truncating sub-second precision.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
