// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/models"
)

// deviceKey builds the storage key for a (rangeID, deviceID) pair.
func deviceKey(rangeID uuid.UUID, deviceID string) string {
	return deviceKeyPrefix + rangeID.String() + ":" + deviceID
}

// TouchDeviceSession upserts the session for (rangeID, deviceID): marks
// it active and refreshes lastSeen. A new row is created on first sight
// of the device.
func (s *Store) TouchDeviceSession(ctx context.Context, rangeID uuid.UUID, deviceID string) (*models.DeviceSession, error) {
	now := time.Now().UTC()
	var sess models.DeviceSession

	err := s.db.Update(func(txn *badger.Txn) error {
		key := deviceKey(rangeID, deviceID)
		err := getJSON(txn, key, &sess)
		switch {
		case errors.Is(err, ErrNotFound):
			sess = models.DeviceSession{
				ID:        uuid.New(),
				RangeID:   rangeID,
				DeviceID:  deviceID,
				CreatedAt: now,
			}
		case err != nil:
			return err
		}

		sess.IsActive = true
		sess.LastSeen = now
		sess.UpdatedAt = now
		return setJSON(txn, key, &sess)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeactivateDeviceSession marks the session inactive. Missing sessions
// are not an error; logout must succeed regardless.
func (s *Store) DeactivateDeviceSession(ctx context.Context, rangeID uuid.UUID, deviceID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := deviceKey(rangeID, deviceID)
		var sess models.DeviceSession
		err := getJSON(txn, key, &sess)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		sess.IsActive = false
		sess.UpdatedAt = time.Now().UTC()
		return setJSON(txn, key, &sess)
	})
}

// ListActiveDevices returns the active sessions of a range, most
// recently seen first.
func (s *Store) ListActiveDevices(ctx context.Context, rangeID uuid.UUID) ([]*models.DeviceSession, error) {
	var sessions []*models.DeviceSession
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, deviceKeyPrefix+rangeID.String()+":", func(val []byte) error {
			var sess models.DeviceSession
			if err := unmarshalDoc(val, &sess); err != nil {
				return err
			}
			if sess.IsActive {
				sessions = append(sessions, &sess)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastSeen.After(sessions[j].LastSeen)
	})
	return sessions, nil
}
