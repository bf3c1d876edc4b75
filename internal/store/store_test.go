// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestRange(name, username string) *models.Range {
	return &models.Range{
		RangeName:    name,
		Username:     username,
		PasswordHash: "$2a$10$x",
		IsActive:     true,
	}
}

func TestCreateRangeEnforcesUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1 := newTestRange("Range 1", "range1")
	require.NoError(t, s.CreateRange(ctx, r1))
	assert.NotEqual(t, uuid.Nil, r1.ID)

	// Same rangeName, different username
	err := s.CreateRange(ctx, newTestRange("Range 1", "other"))
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	// Same username, different rangeName
	err = s.CreateRange(ctx, newTestRange("Other", "range1"))
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	// Uniqueness is case-insensitive
	err = s.CreateRange(ctx, newTestRange("RANGE 1", "x"))
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	// The failed creates must not have left documents behind
	ranges, err := s.ListRanges(ctx)
	require.NoError(t, err)
	assert.Len(t, ranges, 1)
}

func TestGetRangeByIdentifier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newTestRange("Range 7", "range7")
	r.Email = "Range7@Example.com"
	require.NoError(t, s.CreateRange(ctx, r))

	byUser, err := s.GetRangeByIdentifier(ctx, "range7")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byUser.ID)

	byEmail, err := s.GetRangeByIdentifier(ctx, "range7@example.com")
	require.NoError(t, err)
	assert.Equal(t, r.ID, byEmail.ID)

	_, err = s.GetRangeByIdentifier(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRangeMovesIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newTestRange("Range 2", "range2")
	require.NoError(t, s.CreateRange(ctx, r))
	other := newTestRange("Range 3", "range3")
	require.NoError(t, s.CreateRange(ctx, other))

	// Rename onto a taken identity fails
	r.Username = "range3"
	assert.ErrorIs(t, s.UpdateRange(ctx, r), ErrDuplicateIdentity)

	// Rename to a free identity succeeds and frees the old one
	r.Username = "range2b"
	require.NoError(t, s.UpdateRange(ctx, r))

	_, err := s.GetRangeByUsername(ctx, "range2")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetRangeByUsername(ctx, "range2b")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestDeleteRangeCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := newTestRange("Range A", "rangea")
	b := newTestRange("Range B", "rangeb")
	require.NoError(t, s.CreateRange(ctx, a))
	require.NoError(t, s.CreateRange(ctx, b))

	require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: a.ID, ToRange: b.ID, Title: "out"}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: b.ID, ToRange: a.ID, Title: "in"}))
	require.NoError(t, s.UpsertSubscription(ctx, &models.PushSubscription{
		RangeID:  a.ID,
		Endpoint: "https://push.example/a",
		Keys:     models.SubKeys{P256DH: "p", Auth: "s"},
	}))
	_, err := s.TouchDeviceSession(ctx, a.ID, "dev-1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteRange(ctx, a.ID))

	_, err = s.GetRange(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Notes in both directions are gone
	all, err := s.ListAllTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Subscription and sessions are gone, identities freed
	_, err = s.GetSubscription(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	devices, err := s.ListActiveDevices(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
	require.NoError(t, s.CreateRange(ctx, newTestRange("Range A", "rangea")))
}

func TestTaskDefaultsAndMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{FromRange: uuid.New(), ToRange: uuid.New(), Title: "report"}
	require.NoError(t, s.CreateTask(ctx, task))
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.False(t, task.IsRead)

	got, changed, err := s.MarkTaskRead(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, got.IsRead)

	// Second call is idempotent
	got, changed, err = s.MarkTaskRead(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, got.IsRead)

	_, _, err = s.MarkTaskRead(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskListsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	me := uuid.New()
	peer := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateTask(ctx, &models.Task{
			FromRange: peer,
			ToRange:   me,
			Title:     string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: me, ToRange: peer, Title: "sent"}))

	received, err := s.ListReceivedTasks(ctx, me)
	require.NoError(t, err)
	require.Len(t, received, 3)
	assert.Equal(t, "c", received[0].Title)
	assert.Equal(t, "a", received[2].Title)

	sent, err := s.ListSentTasks(ctx, me)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "sent", sent[0].Title)
}

func TestTaskStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	me := newTestRange("Range Me", "me")
	peer := newTestRange("Range Peer", "peer")
	admin := newTestRange("HQ", "hq")
	admin.IsAdmin = true
	disabled := newTestRange("Closed", "closed")
	disabled.IsActive = false
	for _, r := range []*models.Range{me, peer, admin, disabled} {
		require.NoError(t, s.CreateRange(ctx, r))
	}

	require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: peer.ID, ToRange: me.ID}))
	require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: peer.ID, ToRange: me.ID}))
	read := &models.Task{FromRange: peer.ID, ToRange: me.ID, IsRead: true}
	require.NoError(t, s.CreateTask(ctx, read))
	require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: me.ID, ToRange: peer.ID}))

	stats, err := s.TaskStats(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Received)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 2, stats.Unread)
	// Peer and the disabled range: self and admins are excluded, but a
	// disabled colleague still counts.
	assert.Equal(t, 2, stats.Colleagues)
}

func TestDeleteAllTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.CreateTask(ctx, &models.Task{FromRange: uuid.New(), ToRange: uuid.New()}))
	}

	n, err := s.DeleteAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	all, err := s.ListAllTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, s.DeleteTask(ctx, uuid.New()), ErrNotFound)
}

func TestActivityOrderLimitAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		by := "Range 1"
		if i%2 == 1 {
			by = "Range 2"
		}
		require.NoError(t, s.AppendActivity(ctx, &models.ActivityEntry{
			ActionType:  "Note Sent",
			PerformedBy: by,
			Target:      "Range 3",
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.ListActivities(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
	assert.True(t, entries[1].Timestamp.After(entries[2].Timestamp))

	// Actor or target matches
	mine, err := s.ListActivitiesForRange(ctx, "Range 1", 50)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	target, err := s.ListActivitiesForRange(ctx, "Range 3", 50)
	require.NoError(t, err)
	assert.Len(t, target, 5)

	n, err := s.ClearActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	entries, err = s.ListActivities(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeviceSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rangeID := uuid.New()

	first, err := s.TouchDeviceSession(ctx, rangeID, "dev-1")
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	// Re-login reuses the row
	again, err := s.TouchDeviceSession(ctx, rangeID, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = s.TouchDeviceSession(ctx, rangeID, "dev-2")
	require.NoError(t, err)

	devices, err := s.ListActiveDevices(ctx, rangeID)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	require.NoError(t, s.DeactivateDeviceSession(ctx, rangeID, "dev-1"))
	devices, err = s.ListActiveDevices(ctx, rangeID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev-2", devices[0].DeviceID)

	// Logout of an unknown device is not an error
	assert.NoError(t, s.DeactivateDeviceSession(ctx, rangeID, "ghost"))
}

func TestSubscriptionUpsertKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rangeID := uuid.New()

	first := &models.PushSubscription{
		RangeID:  rangeID,
		Endpoint: "https://push.example/1",
		Keys:     models.SubKeys{P256DH: "p1", Auth: "a1"},
	}
	require.NoError(t, s.UpsertSubscription(ctx, first))

	second := &models.PushSubscription{
		RangeID:  rangeID,
		Endpoint: "https://push.example/2",
		Keys:     models.SubKeys{P256DH: "p2", Auth: "a2"},
	}
	require.NoError(t, s.UpsertSubscription(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert must reuse the row")

	got, err := s.GetSubscription(ctx, rangeID)
	require.NoError(t, err)
	assert.Equal(t, "https://push.example/2", got.Endpoint)

	require.NoError(t, s.DeleteSubscription(ctx, rangeID))
	_, err = s.GetSubscription(ctx, rangeID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Pruning twice is fine
	assert.NoError(t, s.DeleteSubscription(ctx, rangeID))
}
