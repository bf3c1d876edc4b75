// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/models"
	"github.com/rangeflow/rangeflow/internal/store"
)

// Sentinel errors surfaced to the API layer.
var (
	// ErrInvalidCredentials covers both unknown identity and wrong
	// password, so responses never reveal which one failed.
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrAccountDisabled    = errors.New("Account is disabled")
	ErrInvalidResetToken  = errors.New("Invalid or expired token")
)

// ForgotPasswordMessage is returned for every forgot-password request,
// whether or not the identity exists, to prevent account enumeration.
const ForgotPasswordMessage = "If an account exists, a reset link has been generated"

// Service implements the authentication flows on top of the store.
type Service struct {
	store    *store.Store
	jwt      *JWTManager
	recorder *activity.Recorder

	clientURL     string
	resetLifetime time.Duration
}

// NewService wires the authentication service.
func NewService(s *store.Store, jwt *JWTManager, rec *activity.Recorder, cfg *config.Config) *Service {
	return &Service{
		store:         s,
		jwt:           jwt,
		recorder:      rec,
		clientURL:     cfg.Server.ClientURL,
		resetLifetime: cfg.Security.ResetTokenLifetime,
	}
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Range    *models.Range
	DeviceID string
	Token    string
}

// Login authenticates a range by username and password. A device id is
// minted when the client supplies none; the device session is marked
// active either way. Both failure modes write a "Login Failed" entry.
func (s *Service) Login(ctx context.Context, username, password, deviceID string) (*LoginResult, error) {
	r, err := s.store.GetRangeByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recorder.Record(ctx, activity.ActionLoginFailed, "", username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(r.PasswordHash, password) {
		s.recorder.Record(ctx, activity.ActionLoginFailed, "", r.RangeName)
		return nil, ErrInvalidCredentials
	}

	if !r.IsActive {
		s.recorder.Record(ctx, activity.ActionLoginFailed, r.RangeName, r.RangeName)
		return nil, ErrAccountDisabled
	}

	if deviceID == "" {
		deviceID = uuid.New().String()
	}
	if _, err := s.store.TouchDeviceSession(ctx, r.ID, deviceID); err != nil {
		return nil, fmt.Errorf("touch device session: %w", err)
	}

	token, err := s.jwt.GenerateToken(r.ID, r.IsAdmin, deviceID)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, activity.ActionLoginSuccess, "", r.RangeName)
	return &LoginResult{Range: r, DeviceID: deviceID, Token: token}, nil
}

// Logout marks the device session of the calling range inactive.
func (s *Service) Logout(ctx context.Context, r *models.Range, deviceID string) error {
	if err := s.store.DeactivateDeviceSession(ctx, r.ID, deviceID); err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.ActionLogout, "", r.RangeName)
	return nil
}

// ForgotPassword starts a password reset for the range matching the
// identifier (username or email). The reset link is surfaced through
// the operational log only; the caller always receives the same
// uniform message regardless of whether the identity exists.
func (s *Service) ForgotPassword(ctx context.Context, identifier string) error {
	r, err := s.store.GetRangeByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	raw, hashed, err := NewResetToken()
	if err != nil {
		return err
	}

	expire := time.Now().UTC().Add(s.resetLifetime)
	r.ResetPasswordToken = hashed
	r.ResetPasswordExpire = &expire
	if err := s.store.UpdateRange(ctx, r); err != nil {
		return err
	}

	logging.Info().
		Str("range", r.RangeName).
		Str("reset_url", fmt.Sprintf("%s/resetpassword/%s", s.clientURL, raw)).
		Time("expires", expire).
		Msg("password reset link generated")
	return nil
}

// ResetPassword completes a reset: the raw token from the link is
// hashed, matched, and checked for expiry before the new password is
// stored. The token is single-use.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	r, err := s.store.GetRangeByResetToken(ctx, HashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if r.ResetPasswordExpire == nil || time.Now().UTC().After(*r.ResetPasswordExpire) {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	r.PasswordHash = hash
	r.MustChangePassword = false
	r.ResetPasswordToken = ""
	r.ResetPasswordExpire = nil
	return s.store.UpdateRange(ctx, r)
}
