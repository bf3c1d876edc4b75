// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/models"
)

// CreateRange stores a new range account. Returns ErrDuplicateIdentity
// when the rangeName or username is already taken; the document and both
// index keys are written in one transaction.
func (s *Store) CreateRange(ctx context.Context, r *models.Range) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	nameKey := rangeNameIndexPrefix + normalizeIdentity(r.RangeName)
	userKey := usernameIndexPrefix + normalizeIdentity(r.Username)

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{nameKey, userKey} {
			if _, err := txn.Get([]byte(key)); err == nil {
				return ErrDuplicateIdentity
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check index %s: %w", key, err)
			}
		}

		if err := setJSON(txn, rangeKeyPrefix+r.ID.String(), r); err != nil {
			return err
		}
		if err := txn.Set([]byte(nameKey), []byte(r.ID.String())); err != nil {
			return fmt.Errorf("set name index: %w", err)
		}
		if err := txn.Set([]byte(userKey), []byte(r.ID.String())); err != nil {
			return fmt.Errorf("set username index: %w", err)
		}
		return nil
	})
}

// GetRange returns the range with the given id.
func (s *Store) GetRange(ctx context.Context, id uuid.UUID) (*models.Range, error) {
	var r models.Range
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, rangeKeyPrefix+id.String(), &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRangeByUsername resolves a range through the username index.
func (s *Store) GetRangeByUsername(ctx context.Context, username string) (*models.Range, error) {
	var r models.Range
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, usernameIndexPrefix+normalizeIdentity(username))
		if err != nil {
			return err
		}
		return getJSON(txn, rangeKeyPrefix+id, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRangeByIdentifier resolves a range by username or email. Email
// matches scan the collection; username hits the index first.
func (s *Store) GetRangeByIdentifier(ctx context.Context, identifier string) (*models.Range, error) {
	if r, err := s.GetRangeByUsername(ctx, identifier); err == nil {
		return r, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	ident := normalizeIdentity(identifier)
	var found *models.Range
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, rangeKeyPrefix, func(val []byte) error {
			var r models.Range
			if err := unmarshalDoc(val, &r); err != nil {
				return err
			}
			if found == nil && r.Email != "" && normalizeIdentity(r.Email) == ident {
				found = &r
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// GetRangeByResetToken resolves a range through the reset-token index.
// The caller passes the sha256 hex digest, never the raw token.
func (s *Store) GetRangeByResetToken(ctx context.Context, tokenHash string) (*models.Range, error) {
	var r models.Range
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, resetTokenIndexPrefix+tokenHash)
		if err != nil {
			return err
		}
		return getJSON(txn, rangeKeyPrefix+id, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRanges returns all ranges, newest first.
func (s *Store) ListRanges(ctx context.Context) ([]*models.Range, error) {
	var ranges []*models.Range
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, rangeKeyPrefix, func(val []byte) error {
			var r models.Range
			if err := unmarshalDoc(val, &r); err != nil {
				return err
			}
			ranges = append(ranges, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].CreatedAt.After(ranges[j].CreatedAt)
	})
	return ranges, nil
}

// UpdateRange persists changes to an existing range. When rangeName or
// username changed, the old index keys move to the new values in the
// same transaction, preserving uniqueness.
func (s *Store) UpdateRange(ctx context.Context, r *models.Range) error {
	r.UpdatedAt = time.Now().UTC()

	return s.db.Update(func(txn *badger.Txn) error {
		var prev models.Range
		if err := getJSON(txn, rangeKeyPrefix+r.ID.String(), &prev); err != nil {
			return err
		}

		if err := moveIndex(txn, rangeNameIndexPrefix, prev.RangeName, r.RangeName, r.ID); err != nil {
			return err
		}
		if err := moveIndex(txn, usernameIndexPrefix, prev.Username, r.Username, r.ID); err != nil {
			return err
		}
		if err := moveResetTokenIndex(txn, prev.ResetPasswordToken, r.ResetPasswordToken, r.ID); err != nil {
			return err
		}

		return setJSON(txn, rangeKeyPrefix+r.ID.String(), r)
	})
}

// DeleteRange removes a range along with its notes in both directions,
// its device sessions, and its push subscription.
func (s *Store) DeleteRange(ctx context.Context, id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var r models.Range
		if err := getJSON(txn, rangeKeyPrefix+id.String(), &r); err != nil {
			return err
		}

		if err := txn.Delete([]byte(rangeKeyPrefix + id.String())); err != nil {
			return fmt.Errorf("delete range: %w", err)
		}
		if err := txn.Delete([]byte(rangeNameIndexPrefix + normalizeIdentity(r.RangeName))); err != nil {
			return fmt.Errorf("delete name index: %w", err)
		}
		if err := txn.Delete([]byte(usernameIndexPrefix + normalizeIdentity(r.Username))); err != nil {
			return fmt.Errorf("delete username index: %w", err)
		}
		if r.ResetPasswordToken != "" {
			if err := txn.Delete([]byte(resetTokenIndexPrefix + r.ResetPasswordToken)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete reset index: %w", err)
			}
		}

		if err := deleteTasksByRangeTxn(txn, id); err != nil {
			return err
		}
		if err := deletePrefix(txn, deviceKeyPrefix+id.String()+":"); err != nil {
			return err
		}
		return deletePrefix(txn, subscriptionKeyPrefix+id.String())
	})
}

// lookupIndex reads an index key and returns the referenced document id.
func lookupIndex(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get index %s: %w", key, err)
	}
	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	return id, err
}

// moveIndex shifts a unique index entry from oldVal to newVal, failing
// with ErrDuplicateIdentity when newVal already belongs to another range.
func moveIndex(txn *badger.Txn, prefix, oldVal, newVal string, id uuid.UUID) error {
	oldKey := prefix + normalizeIdentity(oldVal)
	newKey := prefix + normalizeIdentity(newVal)
	if oldKey == newKey {
		return nil
	}

	if existing, err := lookupIndex(txn, newKey); err == nil {
		if existing != id.String() {
			return ErrDuplicateIdentity
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := txn.Delete([]byte(oldKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete index %s: %w", oldKey, err)
	}
	if err := txn.Set([]byte(newKey), []byte(id.String())); err != nil {
		return fmt.Errorf("set index %s: %w", newKey, err)
	}
	return nil
}

// moveResetTokenIndex keeps the reset-token index in step with the
// document. Tokens are not unique-constrained; collisions on sha256
// digests are not a practical concern.
func moveResetTokenIndex(txn *badger.Txn, oldHash, newHash string, id uuid.UUID) error {
	if oldHash == newHash {
		return nil
	}
	if oldHash != "" {
		if err := txn.Delete([]byte(resetTokenIndexPrefix + oldHash)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete reset index: %w", err)
		}
	}
	if newHash != "" {
		if err := txn.Set([]byte(resetTokenIndexPrefix+newHash), []byte(id.String())); err != nil {
			return fmt.Errorf("set reset index: %w", err)
		}
	}
	return nil
}
