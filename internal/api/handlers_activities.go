// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"net/http"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/models"
)

// ListActivities returns the newest audit entries, capped at 50.
//
// GET /api/activities
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListActivities(r.Context(), activity.DefaultListLimit)
	if err != nil {
		logging.Err(err).Msg("list activities failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if entries == nil {
		entries = []*models.ActivityEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// ClearActivities wipes the audit log. Admin only.
//
// DELETE /api/activities
func (h *Handler) ClearActivities(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.ClearActivities(r.Context())
	if err != nil {
		logging.Err(err).Msg("clear activities failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": count})
}
