// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/auth"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/models"
	"github.com/rangeflow/rangeflow/internal/validation"
)

// ListRanges returns every range as its public projection, newest
// first.
//
// GET /api/ranges
func (h *Handler) ListRanges(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.store.ListRanges(r.Context())
	if err != nil {
		logging.Err(err).Msg("list ranges failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	out := make([]models.PublicRange, 0, len(ranges))
	for _, rng := range ranges {
		out = append(out, rng.Public())
	}
	respondJSON(w, http.StatusOK, out)
}

// CreateRange creates a new range account. Created accounts are always
// non-admin; an isAdmin field in the request body is ignored. Admin
// only.
//
// POST /api/ranges
func (h *Handler) CreateRange(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())

	var req createRangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logging.Err(err).Msg("hash password failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	rng := &models.Range{
		RangeName:    req.RangeName,
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		IsAdmin:      false,
		IsActive:     true,
	}
	if err := h.store.CreateRange(r.Context(), rng); err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	h.recorder.Record(r.Context(), activity.ActionRangeCreated, rng.RangeName, actor.RangeName)
	respondJSON(w, http.StatusCreated, rng.Public())
}

// UpdateRange applies a partial update to a range. Enable/disable
// transitions write their own audit events. Admin only.
//
// PUT /api/ranges/{id}
func (h *Handler) UpdateRange(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req updateRangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rng, err := h.store.GetRange(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	wasActive := rng.IsActive
	if req.RangeName != nil {
		rng.RangeName = *req.RangeName
	}
	if req.Username != nil {
		rng.Username = *req.Username
	}
	if req.Email != nil {
		rng.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			logging.Err(err).Msg("hash password failed")
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		rng.PasswordHash = hash
	}
	if req.IsActive != nil {
		rng.IsActive = *req.IsActive
	}

	if err := h.store.UpdateRange(r.Context(), rng); err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	switch {
	case !wasActive && rng.IsActive:
		h.recorder.Record(r.Context(), activity.ActionRangeEnabled, rng.RangeName, actor.RangeName)
	case wasActive && !rng.IsActive:
		h.recorder.Record(r.Context(), activity.ActionRangeDisabled, rng.RangeName, actor.RangeName)
	default:
		h.recorder.Record(r.Context(), activity.ActionRangeUpdated, rng.RangeName, actor.RangeName)
	}
	respondJSON(w, http.StatusOK, rng.Public())
}

// DeleteRange removes a range, its notes in both directions, and its
// push subscription. Admin only.
//
// DELETE /api/ranges/{id}
func (h *Handler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	rng, err := h.store.GetRange(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	if err := h.store.DeleteRange(r.Context(), id); err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	h.recorder.Record(r.Context(), activity.ActionRangeDeleted, rng.RangeName, actor.RangeName)
	respondMessage(w, http.StatusOK, "Range deleted")
}

// ListRangeDevices returns the active device sessions of a range.
// Admin only.
//
// GET /api/ranges/{id}/devices
func (h *Handler) ListRangeDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetRange(r.Context(), id); err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	devices, err := h.store.ListActiveDevices(r.Context(), id)
	if err != nil {
		logging.Err(err).Msg("list devices failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if devices == nil {
		devices = []*models.DeviceSession{}
	}
	respondJSON(w, http.StatusOK, devices)
}

// RangeActivity returns the activity feed of one range: entries it
// performed or was the target of. Accessible to the range itself and
// to admins.
//
// GET /api/ranges/{id}/activity
func (h *Handler) RangeActivity(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if actor.ID != id && !actor.IsAdmin {
		respondError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	rng, err := h.store.GetRange(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	entries, err := h.store.ListActivitiesForRange(r.Context(), rng.RangeName, activity.DefaultListLimit)
	if err != nil {
		logging.Err(err).Msg("list range activity failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if entries == nil {
		entries = []*models.ActivityEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// AdminResetPassword sets a new password on a range and forces a
// change at next login. Admin only.
//
// POST /api/ranges/reset-password
func (h *Handler) AdminResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())

	var req adminResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := uuid.Parse(req.RangeID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	rng, err := h.store.GetRange(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logging.Err(err).Msg("hash password failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	rng.PasswordHash = hash
	rng.MustChangePassword = true

	if err := h.store.UpdateRange(r.Context(), rng); err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	h.recorder.Record(r.Context(), activity.ActionAdminReset, rng.RangeName, actor.RangeName)
	respondMessage(w, http.StatusOK, "Password reset")
}
