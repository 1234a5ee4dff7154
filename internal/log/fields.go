// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldBreakID   = "break_id"
	FieldAdID      = "ad_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Ad fields
	FieldAdType     = "ad_type"
	FieldAdSystem   = "ad_system"
	FieldAdIndex    = "ad_index"
	FieldCredit     = "credit"
	FieldRenderer   = "renderer_event"
	FieldPopupURL   = "popup_url"
	FieldConfigURL  = "config_url"
	FieldMediaURL   = "media_url"
	FieldAdCount    = "ad_count"
	FieldBreakCount = "break_count"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldMode     = "mode"

	// Timing fields
	FieldPositionMS = "position_ms"
	FieldOffsetMS   = "offset_ms"
	FieldTimeoutMS  = "timeout_ms"

	// Path fields
	FieldPath = "path"
)
