// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package auth implements authentication for RangeFlow: JWT session
// tokens, bcrypt password handling, the login/logout/password-reset
// flows, and the HTTP middleware that guards the API.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/config"
)

// Claims is the JWT payload carried by every session token.
type Claims struct {
	ID       uuid.UUID `json:"id"`
	IsAdmin  bool      `json:"isAdmin"`
	DeviceID string    `json:"deviceId"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates session tokens using HMAC-SHA256.
type JWTManager struct {
	secret   []byte
	lifetime time.Duration
}

// NewJWTManager returns a token manager configured from the security
// section. The secret must be non-empty; length is enforced by config
// validation.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &JWTManager{
		secret:   []byte(cfg.JWTSecret),
		lifetime: cfg.TokenLifetime,
	}, nil
}

// GenerateToken signs a token for the range and device. The token
// carries the admin flag so the middleware can gate admin routes
// without a store lookup, and the device id so logout can deactivate
// the right session.
func (m *JWTManager) GenerateToken(rangeID uuid.UUID, isAdmin bool, deviceID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:       rangeID,
		IsAdmin:  isAdmin,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string, rejecting unexpected
// signing algorithms, bad signatures, and expired tokens.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
