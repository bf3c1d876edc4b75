// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/auth"
	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/hub"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/push"
	"github.com/rangeflow/rangeflow/internal/store"
	"github.com/rangeflow/rangeflow/internal/validation"
)

// Handler carries the dependencies of every API endpoint.
type Handler struct {
	store    *store.Store
	authSvc  *auth.Service
	jwt      *auth.JWTManager
	hub      *hub.Hub
	recorder *activity.Recorder
	push     *push.Dispatcher
	cfg      *config.Config
}

// NewHandler wires the API handlers. push may be nil when push
// notifications are disabled.
func NewHandler(s *store.Store, authSvc *auth.Service, jwt *auth.JWTManager, h *hub.Hub, rec *activity.Recorder, p *push.Dispatcher, cfg *config.Config) *Handler {
	return &Handler{
		store:    s,
		authSvc:  authSvc,
		jwt:      jwt,
		hub:      h,
		recorder: rec,
		push:     p,
		cfg:      cfg,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login authenticates a range and issues a session token.
//
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.authSvc.Login(r.Context(), req.Username, req.Password, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrAccountDisabled):
			respondError(w, http.StatusUnauthorized, err.Error())
		default:
			logging.Err(err).Msg("login failed")
			respondError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"_id":       res.Range.ID,
		"rangeName": res.Range.RangeName,
		"username":  res.Range.Username,
		"isAdmin":   res.Range.IsAdmin,
		"deviceId":  res.DeviceID,
		"token":     res.Token,
	})
}

// Logout deactivates the calling device's session.
//
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rng, ok := auth.RangeFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	deviceID := ""
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		deviceID = claims.DeviceID
	}

	if err := h.authSvc.Logout(r.Context(), rng, deviceID); err != nil {
		logging.Err(err).Msg("logout failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, "Logged out")
}

// ForgotPassword starts a password reset. The response is identical
// whether or not the identity exists.
//
// POST /api/auth/forgotpassword
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		respondError(w, http.StatusBadRequest, "Username or email is required")
		return
	}

	if err := h.authSvc.ForgotPassword(r.Context(), identifier); err != nil {
		logging.Err(err).Msg("forgot password failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, auth.ForgotPasswordMessage)
}

// ResetPassword completes a reset using the raw token from the link.
//
// PUT /api/auth/resetpassword/{token}
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := pathParam(r, "token")
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authSvc.ResetPassword(r.Context(), token, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Err(err).Msg("reset password failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, "Password updated")
}

// parseIDParam reads a uuid path parameter, writing a 400 on failure.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(pathParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
