// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/models"
)

// CreateTask stores a new note. Defaults the priority to Medium when
// the sender supplied none.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, taskKeyPrefix+t.ID.String(), t)
	})
}

// GetTask returns the task with the given id.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, taskKeyPrefix+id.String(), &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTaskRead flips the task's read flag. Idempotent: marking an
// already-read task succeeds without change. Returns the updated task
// and whether this call performed the transition.
func (s *Store) MarkTaskRead(ctx context.Context, id uuid.UUID) (*models.Task, bool, error) {
	var t models.Task
	changed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, taskKeyPrefix+id.String(), &t); err != nil {
			return err
		}
		if t.IsRead {
			return nil
		}
		t.IsRead = true
		changed = true
		return setJSON(txn, taskKeyPrefix+id.String(), &t)
	})
	if err != nil {
		return nil, false, err
	}
	return &t, changed, nil
}

// ListReceivedTasks returns all tasks addressed to the range, newest first.
func (s *Store) ListReceivedTasks(ctx context.Context, rangeID uuid.UUID) ([]*models.Task, error) {
	return s.listTasks(func(t *models.Task) bool { return t.ToRange == rangeID })
}

// ListSentTasks returns all tasks sent by the range, newest first.
func (s *Store) ListSentTasks(ctx context.Context, rangeID uuid.UUID) ([]*models.Task, error) {
	return s.listTasks(func(t *models.Task) bool { return t.FromRange == rangeID })
}

// ListAllTasks returns every task in the store, newest first.
func (s *Store) ListAllTasks(ctx context.Context) ([]*models.Task, error) {
	return s.listTasks(func(*models.Task) bool { return true })
}

func (s *Store) listTasks(keep func(*models.Task) bool) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, taskKeyPrefix, func(val []byte) error {
			var t models.Task
			if err := unmarshalDoc(val, &t); err != nil {
				return err
			}
			if keep(&t) {
				tasks = append(tasks, &t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// TaskStats computes a range's messaging counters. Colleagues counts
// non-admin ranges other than the range itself, whether or not they
// are currently active.
func (s *Store) TaskStats(ctx context.Context, rangeID uuid.UUID) (*models.TaskStats, error) {
	stats := &models.TaskStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		err := forEachPrefix(txn, taskKeyPrefix, func(val []byte) error {
			var t models.Task
			if err := unmarshalDoc(val, &t); err != nil {
				return err
			}
			if t.ToRange == rangeID {
				stats.Received++
				if !t.IsRead {
					stats.Unread++
				}
			}
			if t.FromRange == rangeID {
				stats.Sent++
			}
			return nil
		})
		if err != nil {
			return err
		}

		return forEachPrefix(txn, rangeKeyPrefix, func(val []byte) error {
			var r models.Range
			if err := unmarshalDoc(val, &r); err != nil {
				return err
			}
			if r.ID != rangeID && !r.IsAdmin {
				stats.Colleagues++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteTask removes a single task.
func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := taskKeyPrefix + id.String()
		if _, err := txn.Get([]byte(key)); err != nil {
			return ErrNotFound
		}
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

// DeleteAllTasks removes every task. Returns the number removed.
func (s *Store) DeleteAllTasks(ctx context.Context) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		count = 0
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(taskKeyPrefix)
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

// deleteTasksByRangeTxn removes all tasks sent by or addressed to the
// range, inside the caller's transaction.
func deleteTasksByRangeTxn(txn *badger.Txn, rangeID uuid.UUID) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(taskKeyPrefix)
	var keys [][]byte
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		var t models.Task
		if err := item.Value(func(val []byte) error {
			return unmarshalDoc(val, &t)
		}); err != nil {
			return err
		}
		if t.FromRange == rangeID || t.ToRange == rangeID {
			keys = append(keys, item.KeyCopy(nil))
		}
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}
