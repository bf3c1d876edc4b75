// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package push

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/models"
	"github.com/rangeflow/rangeflow/internal/store"
)

type fakeSender struct {
	mu       sync.Mutex
	payloads [][]byte
	status   int
	err      error
}

func (f *fakeSender) Send(_ context.Context, _ *models.PushSubscription, payload []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return 0, f.err
	}
	return f.status, nil
}

func (f *fakeSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newPushStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func subscribe(t *testing.T, s *store.Store, rangeID uuid.UUID) {
	t.Helper()
	require.NoError(t, s.UpsertSubscription(context.Background(), &models.PushSubscription{
		RangeID:  rangeID,
		Endpoint: "https://push.example/" + rangeID.String(),
		Keys:     models.SubKeys{P256DH: "p", Auth: "a"},
	}))
}

func TestNewNotePayload(t *testing.T) {
	p := NewNotePayload("Range 4", "short note")
	assert.Equal(t, "New Note from Range 4", p.Title)
	assert.Equal(t, "short note...", p.Body)
	assert.Equal(t, "/dashboard", p.URL)

	long := strings.Repeat("x", 120)
	p = NewNotePayload("Range 4", long)
	assert.Equal(t, strings.Repeat("x", 50)+"...", p.Body)
}

func TestNotifyNewNoteDelivers(t *testing.T) {
	s := newPushStore(t)
	sender := &fakeSender{status: http.StatusCreated}
	d := NewDispatcherWithSender(sender, s)

	rangeID := uuid.New()
	subscribe(t, s, rangeID)

	d.NotifyNewNote(context.Background(), rangeID, "Range 1", "hello there")
	d.Wait()

	require.Equal(t, 1, sender.sent())
	var p Payload
	require.NoError(t, json.Unmarshal(sender.payloads[0], &p))
	assert.Equal(t, "New Note from Range 1", p.Title)
}

func TestNotifyNewNoteWithoutSubscription(t *testing.T) {
	s := newPushStore(t)
	sender := &fakeSender{status: http.StatusCreated}
	d := NewDispatcherWithSender(sender, s)

	d.NotifyNewNote(context.Background(), uuid.New(), "Range 1", "hello")
	d.Wait()
	assert.Zero(t, sender.sent())
}

func TestNotifyNewNotePrunesGoneSubscription(t *testing.T) {
	s := newPushStore(t)
	sender := &fakeSender{status: http.StatusGone}
	d := NewDispatcherWithSender(sender, s)

	rangeID := uuid.New()
	subscribe(t, s, rangeID)

	d.NotifyNewNote(context.Background(), rangeID, "Range 1", "hello")
	d.Wait()

	_, err := s.GetSubscription(context.Background(), rangeID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotifyNewNoteKeepsSubscriptionOnTransientError(t *testing.T) {
	s := newPushStore(t)
	sender := &fakeSender{err: errors.New("connection refused")}
	d := NewDispatcherWithSender(sender, s)

	rangeID := uuid.New()
	subscribe(t, s, rangeID)

	d.NotifyNewNote(context.Background(), rangeID, "Range 1", "hello")
	d.Wait()

	_, err := s.GetSubscription(context.Background(), rangeID)
	assert.NoError(t, err)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.NotifyNewNote(context.Background(), uuid.New(), "Range 1", "hello")
	d.Wait()
}

func TestNewDispatcherDisabledWithoutKeys(t *testing.T) {
	s := newPushStore(t)
	assert.Nil(t, NewDispatcher(config.PushConfig{}, s))
	assert.NotNil(t, NewDispatcher(config.PushConfig{
		VAPIDPublicKey:  "pub",
		VAPIDPrivateKey: "priv",
		Subscriber:      "mailto:a@b.c",
	}, s))
}
