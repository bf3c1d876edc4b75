// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/models"
)

// activityKey encodes the entry timestamp inverted, so a forward prefix
// scan yields entries newest first without sorting.
func activityKey(ts time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s%020d:%s", activityKeyPrefix, uint64(math.MaxInt64)-uint64(ts.UnixNano()), id)
}

// AppendActivity stores one audit entry.
func (s *Store) AppendActivity(ctx context.Context, e *models.ActivityEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, activityKey(e.Timestamp, e.ID), e)
	})
}

// ListActivities returns up to limit entries, newest first.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]*models.ActivityEntry, error) {
	return s.listActivities(limit, func(*models.ActivityEntry) bool { return true })
}

// ListActivitiesForRange returns up to limit entries involving the named
// range, either as actor or as target, newest first.
func (s *Store) ListActivitiesForRange(ctx context.Context, rangeName string, limit int) ([]*models.ActivityEntry, error) {
	return s.listActivities(limit, func(e *models.ActivityEntry) bool {
		return e.PerformedBy == rangeName || e.Target == rangeName
	})
}

func (s *Store) listActivities(limit int, keep func(*models.ActivityEntry) bool) ([]*models.ActivityEntry, error) {
	var entries []*models.ActivityEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(activityKeyPrefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e models.ActivityEntry
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalDoc(val, &e)
			}); err != nil {
				return err
			}
			if keep(&e) {
				entries = append(entries, &e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearActivities removes every audit entry. Returns the number removed.
func (s *Store) ClearActivities(ctx context.Context) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		count = 0
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(activityKeyPrefix)
		var keys [][]byte
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
