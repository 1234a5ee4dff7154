// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manifest

import "errors"

var (
	// ErrMalformed marks input that is not a well-formed manifest document.
	ErrMalformed = errors.New("malformed manifest")
	// ErrMissingField marks a required field that is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField marks a field with the wrong JSON type or an out-of-range value.
	ErrInvalidField = errors.New("invalid field")
	// ErrInvalidOffset marks an unparsable scheduling offset.
	ErrInvalidOffset = errors.New("invalid offset")
	// ErrAmbiguousOffset marks a break that sets both timeOffsetMs and contentPosition.
	ErrAmbiguousOffset = errors.New("ambiguous offset: both timeOffsetMs and contentPosition set")
)
