// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rangeflow/rangeflow/internal/hub"
	"github.com/rangeflow/rangeflow/internal/logging"
)

// WebSocket upgrades the connection and attaches the client to the
// hub. Browsers cannot set headers on WebSocket requests, so the token
// is accepted from the Authorization header or a ?token= query
// parameter.
//
// GET /api/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	rng, err := h.store.GetRange(r.Context(), claims.ID)
	if err != nil || !rng.IsActive {
		respondError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

// checkOrigin applies the configured CORS origins to websocket
// upgrades.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
