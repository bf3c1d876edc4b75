// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package api implements the RangeFlow HTTP interface: the JSON REST
// routes under /api and the WebSocket upgrade endpoint.
package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/store"
)

// maxBodyBytes caps request bodies; notes are short.
const maxBodyBytes = 64 * 1024

// respondJSON writes v as the JSON response body.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("failed to encode response")
	}
}

// respondError writes the API error body {"message": "..."}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondMessage writes a success body carrying only a message.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// decodeJSON reads the request body into dst, rejecting unknown sizes
// and malformed JSON with a client error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondStoreError maps store errors onto HTTP statuses. notFound is
// the message used for ErrNotFound, since it differs per collection.
func respondStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrDuplicateIdentity):
		respondError(w, http.StatusBadRequest, "Range name or username already exists")
	default:
		logging.Err(err).Msg("storage operation failed")
		respondError(w, http.StatusInternalServerError, "Server error")
	}
}
