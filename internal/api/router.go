// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rangeflow/rangeflow/internal/auth"
	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/middleware"
)

// loginRateLimit guards the login endpoint against credential
// stuffing: 5 attempts per IP per 5 minutes.
const (
	loginRateLimit  = 5
	loginRateWindow = 5 * time.Minute
)

// NewRouter assembles the chi router: global middleware, public auth
// routes, the authenticated /api surface, and admin subroutes.
func NewRouter(h *Handler, authMW *auth.Middleware, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/health", h.Health)

	// Public auth routes, with a strict limiter on login.
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.With(loginLimiter(cfg)).Post("/login", h.Login)
		r.Post("/forgotpassword", h.ForgotPassword)
		r.Put("/resetpassword/{token}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Post("/logout", h.Logout)
		})
	})

	// WebSocket does its own token validation; the upgrade request
	// cannot always carry an Authorization header.
	r.Get("/api/ws", h.WebSocket)

	// Authenticated API surface.
	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Use(authMW.Authenticate)

		r.Route("/ranges", func(r chi.Router) {
			r.Get("/", h.ListRanges)
			r.Get("/{id}/activity", h.RangeActivity)

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireAdmin)
				r.Post("/", h.CreateRange)
				r.Put("/{id}", h.UpdateRange)
				r.Delete("/{id}", h.DeleteRange)
				r.Get("/{id}/devices", h.ListRangeDevices)
				r.Post("/reset-password", h.AdminResetPassword)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.SendTask)
			r.Get("/received", h.ReceivedTasks)
			r.Get("/sent", h.SentTasks)
			r.Get("/stats", h.TaskStats)
			r.Put("/{id}/read", h.MarkTaskRead)

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireAdmin)
				r.Get("/all", h.AllTasks)
				r.Delete("/all", h.DeleteAllTasks)
				r.Delete("/{id}", h.DeleteTask)
			})
		})

		r.Post("/notifications/subscribe", h.Subscribe)

		r.Get("/activities", h.ListActivities)
		r.With(authMW.RequireAdmin).Delete("/activities", h.ClearActivities)
	})

	return r
}

// rateLimit is the default per-IP limiter for API traffic.
func rateLimit(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.Security.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow)
}

// loginLimiter is the strict per-IP limiter on credential checks.
func loginLimiter(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.Security.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(loginRateLimit, loginRateWindow)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// pathParam reads a chi URL parameter.
func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
