// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeflow/rangeflow/internal/models"
)

type fakeAppender struct {
	entries []*models.ActivityEntry
	err     error
}

func (f *fakeAppender) AppendActivity(_ context.Context, e *models.ActivityEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeBroadcaster struct {
	events   []string
	payloads []interface{}
}

func (f *fakeBroadcaster) EmitGlobal(event string, payload interface{}) {
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
}

func TestRecordAppendsAndBroadcasts(t *testing.T) {
	store := &fakeAppender{}
	hub := &fakeBroadcaster{}
	rec := NewRecorder(store, hub)

	rec.Record(context.Background(), ActionNoteSent, "Range 2", "Range 1")

	require.Len(t, store.entries, 1)
	assert.Equal(t, "Note Sent", store.entries[0].ActionType)
	assert.Equal(t, "Range 2", store.entries[0].Target)
	assert.Equal(t, "Range 1", store.entries[0].PerformedBy)

	require.Len(t, hub.events, 1)
	assert.Equal(t, "activity_log", hub.events[0])
	assert.Same(t, store.entries[0], hub.payloads[0])
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	store := &fakeAppender{err: errors.New("disk full")}
	hub := &fakeBroadcaster{}
	rec := NewRecorder(store, hub)

	// Must not panic or propagate; a failed append is not broadcast.
	rec.Record(context.Background(), ActionLogout, "", "Range 1")
	assert.Empty(t, hub.events)
}

func TestRecordWithoutBroadcaster(t *testing.T) {
	store := &fakeAppender{}
	rec := NewRecorder(store, nil)

	rec.Record(context.Background(), ActionLoginSuccess, "", "Range 1")
	assert.Len(t, store.entries, 1)
}
