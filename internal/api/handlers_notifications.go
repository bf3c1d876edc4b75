// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"net/http"

	"github.com/rangeflow/rangeflow/internal/auth"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/models"
	"github.com/rangeflow/rangeflow/internal/validation"
)

// Subscribe registers (or replaces) the caller's push subscription.
//
// POST /api/notifications/subscribe
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	rng, _ := auth.RangeFromContext(r.Context())

	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub := &models.PushSubscription{
		RangeID:  rng.ID,
		Endpoint: req.Endpoint,
		Keys: models.SubKeys{
			P256DH: req.Keys.P256DH,
			Auth:   req.Keys.Auth,
		},
	}
	if err := h.store.UpsertSubscription(r.Context(), sub); err != nil {
		logging.Err(err).Msg("subscribe failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusCreated, "Subscribed")
}
