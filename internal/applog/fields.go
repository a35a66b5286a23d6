// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package applog

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldBatchID   = "batch_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Artifact fields
	FieldKind = "kind"
	FieldTool = "tool"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath    = "path"
	FieldSidecar = "sidecar"
)
