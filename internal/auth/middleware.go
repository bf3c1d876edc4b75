// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/models"
)

type contextKey string

const (
	rangeContextKey  contextKey = "auth_range"
	claimsContextKey contextKey = "auth_claims"
)

// Middleware guards HTTP routes with bearer-token authentication.
type Middleware struct {
	jwt   *JWTManager
	store RangeLoader
}

// RangeLoader is the slice of the store the middleware needs.
type RangeLoader interface {
	GetRange(ctx context.Context, id uuid.UUID) (*models.Range, error)
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwt *JWTManager, store RangeLoader) *Middleware {
	return &Middleware{jwt: jwt, store: store}
}

// Authenticate validates the Authorization bearer token, loads the
// range it names, and rejects disabled accounts. The range and claims
// are placed on the request context for handlers downstream.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "Not authorized")
			return
		}

		claims, err := m.jwt.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			unauthorized(w, "Not authorized")
			return
		}

		rng, err := m.store.GetRange(r.Context(), claims.ID)
		if err != nil {
			unauthorized(w, "Not authorized")
			return
		}
		if !rng.IsActive {
			unauthorized(w, "Account is disabled")
			return
		}

		ctx := context.WithValue(r.Context(), rangeContextKey, rng)
		ctx = context.WithValue(ctx, claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates a route to admin ranges. Must run after
// Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng, ok := RangeFromContext(r.Context())
		if !ok || !rng.IsAdmin {
			forbidden(w, "Not authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RangeFromContext returns the authenticated range set by Authenticate.
func RangeFromContext(ctx context.Context) (*models.Range, bool) {
	rng, ok := ctx.Value(rangeContextKey).(*models.Range)
	return rng, ok
}

// ClaimsFromContext returns the token claims set by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusUnauthorized, message)
}

func forbidden(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusForbidden, message)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
