// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/models"
	"github.com/rangeflow/rangeflow/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ClientURL: "http://localhost:3000"},
		Security: config.SecurityConfig{
			JWTSecret:          "0123456789abcdef0123456789abcdef",
			TokenLifetime:      30 * 24 * time.Hour,
			ResetTokenLifetime: 10 * time.Minute,
		},
	}
}

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := testConfig()
	jwt, err := NewJWTManager(&cfg.Security)
	require.NoError(t, err)

	rec := activity.NewRecorder(s, nil)
	return NewService(s, jwt, rec, cfg), s
}

func seedRange(t *testing.T, s *store.Store, name, username, password string, active bool) *models.Range {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	r := &models.Range{
		RangeName:    name,
		Username:     username,
		PasswordHash: hash,
		IsActive:     active,
	}
	require.NoError(t, s.CreateRange(context.Background(), r))
	return r
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestResetTokenHashing(t *testing.T) {
	raw, hashed, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, raw, 40, "20 random bytes hex-encoded")
	assert.Len(t, hashed, 64, "sha256 hex digest")
	assert.Equal(t, hashed, HashResetToken(raw))

	raw2, _, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
}

func TestJWTRoundTrip(t *testing.T) {
	cfg := testConfig()
	m, err := NewJWTManager(&cfg.Security)
	require.NoError(t, err)

	id := uuid.New()
	token, err := m.GenerateToken(id, true, "dev-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.ID)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "dev-1", claims.DeviceID)

	_, err = m.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.TokenLifetime = -time.Minute
	m, err := NewJWTManager(&cfg.Security)
	require.NoError(t, err)

	token, err := m.GenerateToken(uuid.New(), false, "dev")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestLoginSuccessMintsDeviceID(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	r := seedRange(t, s, "Range 1", "range1", "secret99", true)

	res, err := svc.Login(ctx, "range1", "secret99", "")
	require.NoError(t, err)
	assert.Equal(t, r.ID, res.Range.ID)
	assert.NotEmpty(t, res.DeviceID)
	assert.NotEmpty(t, res.Token)

	devices, err := s.ListActiveDevices(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, res.DeviceID, devices[0].DeviceID)

	entries, err := s.ListActivities(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, activity.ActionLoginSuccess, entries[0].ActionType)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	seedRange(t, s, "Range 1", "range1", "secret99", true)

	// Unknown username and wrong password yield the same error.
	_, err := svc.Login(ctx, "nobody", "whatever", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "range1", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	entries, err := s.ListActivities(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, activity.ActionLoginFailed, entries[0].ActionType)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, s := newTestService(t)
	seedRange(t, s, "Range 1", "range1", "secret99", false)

	_, err := svc.Login(context.Background(), "range1", "secret99", "")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogoutDeactivatesDevice(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	r := seedRange(t, s, "Range 1", "range1", "secret99", true)

	res, err := svc.Login(ctx, "range1", "secret99", "dev-7")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, r, res.DeviceID))
	devices, err := s.ListActiveDevices(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestForgotPasswordUnknownIdentityIsSilent(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.ForgotPassword(context.Background(), "nobody"))
}

func TestResetPasswordFlow(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	r := seedRange(t, s, "Range 1", "range1", "oldpass99", true)

	require.NoError(t, svc.ForgotPassword(ctx, "range1"))

	// Fetch the stored token hash; the raw token only appears in the
	// reset link, so reconstruct the lookup through the store.
	stored, err := s.GetRange(ctx, r.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ResetPasswordToken)
	require.NotNil(t, stored.ResetPasswordExpire)

	// A bogus token is rejected.
	assert.ErrorIs(t, svc.ResetPassword(ctx, "not-a-token", "newpass99"), ErrInvalidResetToken)

	// Simulate the link: mint a token we control and store its hash.
	raw, hashed, err := NewResetToken()
	require.NoError(t, err)
	stored.ResetPasswordToken = hashed
	require.NoError(t, s.UpdateRange(ctx, stored))

	require.NoError(t, svc.ResetPassword(ctx, raw, "newpass99"))

	_, err = svc.Login(ctx, "range1", "newpass99", "")
	require.NoError(t, err)

	// Token is single-use.
	assert.ErrorIs(t, svc.ResetPassword(ctx, raw, "again1234"), ErrInvalidResetToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	r := seedRange(t, s, "Range 1", "range1", "oldpass99", true)

	raw, hashed, err := NewResetToken()
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	r.ResetPasswordToken = hashed
	r.ResetPasswordExpire = &past
	require.NoError(t, s.UpdateRange(ctx, r))

	assert.ErrorIs(t, svc.ResetPassword(ctx, raw, "newpass99"), ErrInvalidResetToken)
}
