// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package models defines the data structures shared across the RangeFlow
// server: range accounts, notes (tasks), device sessions, activity log
// entries, and push subscriptions.
//
// JSON field names follow the public API contract (camelCase, Mongo-style
// "_id") so existing clients keep working unchanged.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency level of a note.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Range represents an office-unit account. A range is both an identity
// (login credentials) and an addressable recipient for notes.
//
// PasswordHash and the reset-token fields are never serialized; API
// responses use the Public projection.
type Range struct {
	ID           uuid.UUID `json:"_id"`
	RangeName    string    `json:"rangeName"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	IsActive     bool      `json:"isActive"`

	// MustChangePassword is set after an admin password reset and cleared
	// when the range changes its own password.
	MustChangePassword bool `json:"mustChangePassword"`

	// ResetPasswordToken holds the sha256 hex digest of the raw reset
	// token. The raw token is only ever surfaced in the reset link.
	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicRange is the projection of a Range safe to return to any
// authenticated caller.
type PublicRange struct {
	ID        uuid.UUID `json:"_id"`
	RangeName string    `json:"rangeName"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns the API-safe projection of the range.
func (r *Range) Public() PublicRange {
	return PublicRange{
		ID:        r.ID,
		RangeName: r.RangeName,
		Username:  r.Username,
		Email:     r.Email,
		IsAdmin:   r.IsAdmin,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Task is a note sent from one range to another.
type Task struct {
	ID        uuid.UUID `json:"_id"`
	FromRange uuid.UUID `json:"fromRange"`
	ToRange   uuid.UUID `json:"toRange"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`

	// KGID is a free-form case/reference number attached by the sender.
	KGID string `json:"kgid,omitempty"`

	Priority  Priority  `json:"priority"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// RangeRef is the counterpart identity embedded in task list responses.
type RangeRef struct {
	ID        uuid.UUID `json:"_id"`
	RangeName string    `json:"rangeName"`
	Username  string    `json:"username"`
}

// TaskView is a task with its endpoint identities populated. FromRange
// and ToRange are nil when the counterpart range no longer exists.
type TaskView struct {
	ID        uuid.UUID `json:"_id"`
	FromRange *RangeRef `json:"fromRange"`
	ToRange   *RangeRef `json:"toRange"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	KGID      string    `json:"kgid,omitempty"`
	Priority  Priority  `json:"priority"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskStats summarizes a range's messaging activity.
type TaskStats struct {
	Received   int `json:"received"`
	Sent       int `json:"sent"`
	Unread     int `json:"unread"`
	Colleagues int `json:"colleagues"`
}

// DeviceSession tracks one device of a range. One row exists per
// (rangeID, deviceID) pair; rows are marked inactive on logout but
// never deleted.
type DeviceSession struct {
	ID        uuid.UUID `json:"_id"`
	RangeID   uuid.UUID `json:"rangeId"`
	DeviceID  string    `json:"deviceId"`
	SocketID  string    `json:"socketId,omitempty"`
	IsActive  bool      `json:"isActive"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActivityEntry is one append-only audit record.
type ActivityEntry struct {
	ID          uuid.UUID `json:"_id"`
	ActionType  string    `json:"actionType"`
	Target      string    `json:"target"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// PushSubscription is a Web Push endpoint registered by a range's
// browser. At most one subscription exists per range.
type PushSubscription struct {
	ID       uuid.UUID `json:"_id"`
	RangeID  uuid.UUID `json:"rangeId"`
	Endpoint string    `json:"endpoint"`
	Keys     SubKeys   `json:"keys"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubKeys holds the client key material of a push subscription.
type SubKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}
