// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/auth"
	"github.com/rangeflow/rangeflow/internal/hub"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/metrics"
	"github.com/rangeflow/rangeflow/internal/models"
	"github.com/rangeflow/rangeflow/internal/validation"
)

// SendTask creates a note addressed to another range, emits a
// receive_task event into the recipient's room, and pushes a browser
// notification. Sending to yourself is allowed.
//
// POST /api/tasks
func (h *Handler) SendTask(w http.ResponseWriter, r *http.Request) {
	sender, _ := auth.RangeFromContext(r.Context())

	var req sendTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	toID, err := uuid.Parse(req.ToRange)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	recipient, err := h.store.GetRange(r.Context(), toID)
	if err != nil {
		respondStoreError(w, err, "Range not found")
		return
	}

	task := &models.Task{
		FromRange: sender.ID,
		ToRange:   recipient.ID,
		Title:     req.Title,
		Message:   req.Message,
		KGID:      req.KGID,
		Priority:  models.Priority(req.Priority),
	}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		logging.Err(err).Msg("create task failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	metrics.RecordNoteSent()
	h.recorder.Record(r.Context(), activity.ActionNoteSent, recipient.RangeName, sender.RangeName)
	h.hub.EmitToRoom(recipient.ID.String(), hub.EventReceiveTask, h.taskView(r.Context(), task))
	h.push.NotifyNewNote(r.Context(), recipient.ID, sender.RangeName, task.Message)

	respondJSON(w, http.StatusCreated, h.taskView(r.Context(), task))
}

// ReceivedTasks lists notes addressed to the caller, newest first.
//
// GET /api/tasks/received
func (h *Handler) ReceivedTasks(w http.ResponseWriter, r *http.Request) {
	rng, _ := auth.RangeFromContext(r.Context())
	tasks, err := h.store.ListReceivedTasks(r.Context(), rng.ID)
	if err != nil {
		logging.Err(err).Msg("list received tasks failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, h.taskViews(r.Context(), tasks))
}

// SentTasks lists notes the caller sent, newest first.
//
// GET /api/tasks/sent
func (h *Handler) SentTasks(w http.ResponseWriter, r *http.Request) {
	rng, _ := auth.RangeFromContext(r.Context())
	tasks, err := h.store.ListSentTasks(r.Context(), rng.ID)
	if err != nil {
		logging.Err(err).Msg("list sent tasks failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, h.taskViews(r.Context(), tasks))
}

// TaskStats returns the caller's messaging counters.
//
// GET /api/tasks/stats
func (h *Handler) TaskStats(w http.ResponseWriter, r *http.Request) {
	rng, _ := auth.RangeFromContext(r.Context())
	stats, err := h.store.TaskStats(r.Context(), rng.ID)
	if err != nil {
		logging.Err(err).Msg("task stats failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// MarkTaskRead marks a note read. Only the recipient may do this; the
// sender's room receives a task_read_receipt and the audit log keeps
// the note's reference number. Idempotent.
//
// PUT /api/tasks/{id}/read
func (h *Handler) MarkTaskRead(w http.ResponseWriter, r *http.Request) {
	rng, _ := auth.RangeFromContext(r.Context())
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Task not found")
		return
	}
	if task.ToRange != rng.ID {
		respondError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	task, changed, err := h.store.MarkTaskRead(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Task not found")
		return
	}

	if changed {
		ref := task.KGID
		if ref == "" {
			ref = "N/A"
		}
		h.recorder.Record(r.Context(), activity.ActionNoteRead, "Note KGID "+ref, rng.RangeName)
		h.hub.EmitToRoom(task.FromRange.String(), hub.EventTaskReadReceipt, map[string]interface{}{
			"taskId": task.ID,
			"readBy": rng.RangeName,
		})
	}
	respondJSON(w, http.StatusOK, h.taskView(r.Context(), task))
}

// AllTasks lists every note with both endpoints populated. Admin only.
//
// GET /api/tasks/all
func (h *Handler) AllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListAllTasks(r.Context())
	if err != nil {
		logging.Err(err).Msg("list all tasks failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, h.taskViews(r.Context(), tasks))
}

// DeleteTask removes one note and announces it globally. Admin only.
//
// DELETE /api/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteTask(r.Context(), id); err != nil {
		respondStoreError(w, err, "Task not found")
		return
	}

	h.recorder.Record(r.Context(), activity.ActionNoteDeleted, "", actor.RangeName)
	h.hub.EmitGlobal(hub.EventNoteDeleted, map[string]interface{}{"taskId": id})
	respondMessage(w, http.StatusOK, "Task deleted")
}

// DeleteAllTasks removes every note and announces it globally. Admin
// only.
//
// DELETE /api/tasks/all
func (h *Handler) DeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.RangeFromContext(r.Context())

	count, err := h.store.DeleteAllTasks(r.Context())
	if err != nil {
		logging.Err(err).Msg("bulk delete tasks failed")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.recorder.Record(r.Context(), activity.ActionBulkDelete, "", actor.RangeName)
	h.hub.EmitGlobal(hub.EventNotesCleared, map[string]interface{}{"deleted": count})
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": count})
}

// taskView populates a task's endpoints from the account store. A
// missing counterpart (deleted range) stays nil.
func (h *Handler) taskView(ctx context.Context, t *models.Task) models.TaskView {
	v := models.TaskView{
		ID:        t.ID,
		Title:     t.Title,
		Message:   t.Message,
		KGID:      t.KGID,
		Priority:  t.Priority,
		IsRead:    t.IsRead,
		CreatedAt: t.CreatedAt,
	}
	if from, err := h.store.GetRange(ctx, t.FromRange); err == nil {
		v.FromRange = &models.RangeRef{ID: from.ID, RangeName: from.RangeName, Username: from.Username}
	}
	if to, err := h.store.GetRange(ctx, t.ToRange); err == nil {
		v.ToRange = &models.RangeRef{ID: to.ID, RangeName: to.RangeName, Username: to.Username}
	}
	return v
}

func (h *Handler) taskViews(ctx context.Context, tasks []*models.Task) []models.TaskView {
	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, h.taskView(ctx, t))
	}
	return views
}
