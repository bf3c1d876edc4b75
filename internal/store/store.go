// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package store persists RangeFlow documents in BadgerDB.
//
// Each collection lives under its own key prefix and every document is
// stored as a JSON value. Unique constraints (rangeName, username) are
// enforced with secondary index keys written in the same transaction as
// the document, so a constraint violation rolls the whole write back.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	rangeKeyPrefix        = "range:"
	rangeNameIndexPrefix  = "range_name:"
	usernameIndexPrefix   = "range_username:"
	taskKeyPrefix         = "task:"
	deviceKeyPrefix       = "device:"
	activityKeyPrefix     = "activity:"
	subscriptionKeyPrefix = "subscription:"
	resetTokenIndexPrefix = "reset_token:"
)

// Sentinel errors returned by store operations. Handlers map these onto
// HTTP statuses.
var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicateIdentity = errors.New("range name or username already exists")
)

// Store is the BadgerDB-backed document store for all RangeFlow
// collections.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database described by cfg.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open BadgerDB. Used by tests.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// getJSON reads the value at key within txn and unmarshals it into out.
// Returns ErrNotFound when the key is absent.
func getJSON(txn *badger.Txn, key string, out interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// unmarshalDoc decodes a stored JSON document into out.
func unmarshalDoc(val []byte, out interface{}) error {
	return json.Unmarshal(val, out)
}

// setJSON marshals doc and writes it at key within txn.
func setJSON(txn *badger.Txn, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// forEachPrefix iterates all values under prefix within txn, invoking fn
// with each raw value.
func forEachPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// deletePrefix removes every key under prefix within txn.
func deletePrefix(txn *badger.Txn, prefix string) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	var keys [][]byte
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

// normalizeIdentity lowercases an identity value for index keys, so
// uniqueness is case-insensitive.
func normalizeIdentity(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// badgerLogger adapts badger's logger interface onto zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(strings.TrimSpace(format), args...)
}
