// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrNoSnapshot is returned by Snapshotter.Load for unknown keys.
var ErrNoSnapshot = errors.New("no snapshot")

// Snapshotter persists the last good fetch of each table.
type Snapshotter interface {
	Save(key string, data any, fetchedAt time.Time) error
	// Load decodes the snapshot for key into dst and returns its fetch time.
	Load(key string, dst any) (time.Time, error)
	// Delete drops the snapshots for keys. Unknown keys are ignored.
	Delete(keys ...string) error
}

const snapshotKeyPrefix = "cache:"

type snapshotRecord struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Data      json.RawMessage `json:"data"`
}

// BadgerSnapshot stores snapshots in a BadgerDB directory.
type BadgerSnapshot struct {
	db *badger.DB
}

// OpenBadgerSnapshot opens (or creates) a snapshot store at dir. An empty dir
// opens an in-memory store.
func OpenBadgerSnapshot(dir string) (*BadgerSnapshot, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &BadgerSnapshot{db: db}, nil
}

// Save implements Snapshotter.
func (b *BadgerSnapshot) Save(key string, data any, fetchedAt time.Time) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", key, err)
	}
	val, err := json.Marshal(snapshotRecord{FetchedAt: fetchedAt, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKeyPrefix+key), val)
	})
}

// Load implements Snapshotter.
func (b *BadgerSnapshot) Load(key string, dst any) (time.Time, error) {
	var rec snapshotRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSnapshot
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal(rec.Data, dst); err != nil {
		return time.Time{}, fmt.Errorf("decode %s snapshot: %w", key, err)
	}
	return rec.FetchedAt, nil
}

// Delete implements Snapshotter.
func (b *BadgerSnapshot) Delete(keys ...string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(snapshotKeyPrefix + key)); err != nil {
				return fmt.Errorf("delete %s snapshot: %w", key, err)
			}
		}
		return nil
	})
}

// Close flushes and closes the database.
func (b *BadgerSnapshot) Close() error {
	return b.db.Close()
}
