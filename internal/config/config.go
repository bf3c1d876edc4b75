// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package config provides layered configuration loading for the RangeFlow
// server: built-in defaults, an optional YAML file, then environment
// variables, with ENV taking the highest precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the RangeFlow server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Push     PushConfig     `koanf:"push"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ClientURL is the public URL of the web client, used to build
	// password-reset links.
	ClientURL string `koanf:"client_url"`
}

// DatabaseConfig holds document store settings.
type DatabaseConfig struct {
	// Path is the BadgerDB data directory.
	Path string `koanf:"path"`

	// InMemory runs the store without persistence. Used by tests.
	InMemory bool `koanf:"in_memory"`
}

// SecurityConfig holds authentication and transport security settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenLifetime is the validity window of issued tokens.
	TokenLifetime time.Duration `koanf:"token_lifetime"`

	// ResetTokenLifetime is the validity window of password-reset tokens.
	ResetTokenLifetime time.Duration `koanf:"reset_token_lifetime"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// PushConfig holds Web Push (VAPID) settings. Push delivery is disabled
// when the key pair is empty.
type PushConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`

	// Subscriber is the contact address reported to push services,
	// usually a mailto: URL.
	Subscriber string `koanf:"subscriber"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Enabled reports whether push delivery is configured.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// Validate checks the configuration for fatal misconfiguration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.Security.TokenLifetime <= 0 {
		return fmt.Errorf("security.token_lifetime must be positive")
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path is required unless database.in_memory is set")
	}
	return nil
}
