// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"deviceId"`
}

type forgotPasswordRequest struct {
	// Either field may carry the identity; username wins when both are
	// set.
	Username string `json:"username"`
	Email    string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type createRangeRequest struct {
	RangeName string `json:"rangeName" validate:"required,max=100"`
	Username  string `json:"username" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=6"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// updateRangeRequest carries a partial update; nil fields are left
// untouched.
type updateRangeRequest struct {
	RangeName *string `json:"rangeName" validate:"omitempty,max=100"`
	Username  *string `json:"username" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	IsActive  *bool   `json:"isActive"`
}

type adminResetPasswordRequest struct {
	RangeID     string `json:"rangeId" validate:"required,uuid"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type sendTaskRequest struct {
	ToRange  string `json:"toRange" validate:"required,uuid"`
	Title    string `json:"title" validate:"required,max=200"`
	Message  string `json:"message" validate:"required,max=5000"`
	KGID     string `json:"kgid" validate:"omitempty,max=100"`
	Priority string `json:"priority" validate:"omitempty,oneof=Low Medium High"`
}

type subscribeRequest struct {
	Endpoint string        `json:"endpoint" validate:"required,url"`
	Keys     subscribeKeys `json:"keys" validate:"required"`
}

type subscribeKeys struct {
	P256DH string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}
