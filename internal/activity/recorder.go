// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package activity records audit entries for range and note operations.
//
// Recording is strictly best-effort: a failed append or broadcast is
// logged and swallowed, never surfaced to the operation that triggered
// it.
package activity

import (
	"context"

	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/models"
)

// Action names written to the audit log.
const (
	ActionLoginSuccess  = "Login Success"
	ActionLoginFailed   = "Login Failed"
	ActionLogout        = "Logout"
	ActionRangeCreated  = "Range Created"
	ActionRangeUpdated  = "Range Updated"
	ActionRangeEnabled  = "Range Enabled"
	ActionRangeDisabled = "Range Disabled"
	ActionRangeDeleted  = "Range Deleted"
	ActionAdminReset    = "Admin Reset Password"
	ActionNoteSent      = "Note Sent"
	ActionNoteRead      = "Note Read"
	ActionNoteDeleted   = "Note deleted"
	ActionBulkDelete    = "Bulk delete"
)

// DefaultListLimit caps activity feed responses.
const DefaultListLimit = 50

// Appender is the slice of the store the recorder writes through.
type Appender interface {
	AppendActivity(ctx context.Context, e *models.ActivityEntry) error
}

// Broadcaster pushes recorded entries to connected clients. The
// realtime hub satisfies this.
type Broadcaster interface {
	EmitGlobal(event string, payload interface{})
}

// Recorder appends audit entries and mirrors them onto the realtime
// feed. A nil Broadcaster disables the mirror.
type Recorder struct {
	store Appender
	hub   Broadcaster
}

// NewRecorder creates a recorder writing through store, broadcasting
// via hub when non-nil.
func NewRecorder(store Appender, hub Broadcaster) *Recorder {
	return &Recorder{store: store, hub: hub}
}

// Record writes one entry. Errors are logged, never returned: audit
// failures must not fail the operation being audited.
func (r *Recorder) Record(ctx context.Context, actionType, target, performedBy string) {
	entry := &models.ActivityEntry{
		ActionType:  actionType,
		Target:      target,
		PerformedBy: performedBy,
	}

	if err := r.store.AppendActivity(ctx, entry); err != nil {
		logging.Err(err).
			Str("action", actionType).
			Str("target", target).
			Msg("failed to record activity")
		return
	}

	if r.hub != nil {
		r.hub.EmitGlobal("activity_log", entry)
	}
}
