// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/models"
)

// UpsertSubscription stores the push subscription for a range, replacing
// any previous one. A range holds at most one subscription.
func (s *Store) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now().UTC()

	return s.db.Update(func(txn *badger.Txn) error {
		key := subscriptionKeyPrefix + sub.RangeID.String()

		var prev models.PushSubscription
		err := getJSON(txn, key, &prev)
		switch {
		case errors.Is(err, ErrNotFound):
			sub.ID = uuid.New()
			sub.CreatedAt = now
		case err != nil:
			return err
		default:
			sub.ID = prev.ID
			sub.CreatedAt = prev.CreatedAt
		}

		sub.UpdatedAt = now
		return setJSON(txn, key, sub)
	})
}

// GetSubscription returns the push subscription of a range.
func (s *Store) GetSubscription(ctx context.Context, rangeID uuid.UUID) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, subscriptionKeyPrefix+rangeID.String(), &sub)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes the push subscription of a range. Missing
// subscriptions are not an error; pruning must be idempotent.
func (s *Store) DeleteSubscription(ctx context.Context, rangeID uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(subscriptionKeyPrefix + rangeID.String()))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete subscription: %w", err)
		}
		return nil
	})
}
