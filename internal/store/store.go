// SPDX-License-Identifier: MIT

// Package store persists parsed BRENDA records in a badger database and
// answers the queries the API layer needs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/text/cases"

	"github.com/brendacyc/brendacyc/internal/brenda"
	"github.com/brendacyc/brendacyc/internal/log"
)

// Key layout:
//   rec:<ec>:<field>  JSON brenda.Record
//   meta:snapshot     JSON Snapshot of the last import
//   lease:import      import serialization lease (TTL)
const (
	recPrefix   = "rec:"
	snapshotKey = "meta:snapshot"
	leaseKey    = "lease:import"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("store: not found")
	// ErrImportLeaseHeld is returned when another import holds the lease.
	ErrImportLeaseHeld = errors.New("store: import lease held")
)

// Snapshot describes the state of the last completed import.
type Snapshot struct {
	ImportID   string    `json:"importId"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"importedAt"`
	Enzymes    int       `json:"enzymes"`
	Records    int       `json:"records"`
}

// Store is a badger-backed record store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store. Used by tests and the export CLI.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func recordKey(ec, field string) []byte {
	return []byte(recPrefix + ec + ":" + field)
}

// ReplaceRecords replaces all stored records with recs and publishes snap
// as the current snapshot. New records are written and flushed before any
// stale key is removed, so a mid-import failure leaves the previous
// dataset readable.
func (s *Store) ReplaceRecords(ctx context.Context, snap Snapshot, recs []brenda.Record) error {
	keep := make(map[string]struct{}, len(recs))

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range recs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		buf, err := json.Marshal(&recs[i])
		if err != nil {
			return fmt.Errorf("marshal record %s/%s: %w", recs[i].EC, recs[i].Field, err)
		}
		key := recordKey(recs[i].EC, recs[i].Field)
		keep[string(key)] = struct{}{}
		if err := wb.Set(key, buf); err != nil {
			return fmt.Errorf("write record %s/%s: %w", recs[i].EC, recs[i].Field, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}

	if err := s.deleteStale(ctx, keep); err != nil {
		return fmt.Errorf("remove stale records: %w", err)
	}

	return s.putSnapshot(snap)
}

// deleteStale removes record keys that are not part of the current import.
func (s *Store) deleteStale(ctx context.Context, keep map[string]struct{}) error {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(recPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			key := it.Item().KeyCopy(nil)
			if _, ok := keep[string(key)]; !ok {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (s *Store) putSnapshot(snap Snapshot) error {
	buf, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), buf)
	})
}

// Snapshot returns the metadata of the last completed import.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	var out Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// GetEnzyme returns every record stored for the given EC number.
func (s *Store) GetEnzyme(ctx context.Context, ec string) ([]brenda.Record, error) {
	prefix := []byte(recPrefix + ec + ":")
	var out []brenda.Record

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var rec brenda.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// GetField returns the single record for (ec, field).
func (s *Store) GetField(ctx context.Context, ec, field string) (*brenda.Record, error) {
	var out brenda.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(ec, field))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ScanRecords streams every stored record to fn in key order.
func (s *Store) ScanRecords(ctx context.Context, fn func(brenda.Record) error) error {
	prefix := []byte(recPrefix)
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var rec brenda.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				logger := log.WithComponent("store")
				logger.Error().
					Err(err).
					Str("key", string(it.Item().KeyCopy(nil))).
					Msg("skipping undecodable record")
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

var fold = cases.Fold()

// Search returns up to limit records whose description contains query,
// case-folded. A limit <= 0 means no limit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]brenda.Record, error) {
	needle := fold.String(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var out []brenda.Record
	errDone := errors.New("done")
	err := s.ScanRecords(ctx, func(rec brenda.Record) error {
		if !strings.Contains(fold.String(rec.Description), needle) {
			return nil
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			return errDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		return nil, err
	}
	return out, nil
}

// TryAcquireImportLease takes the import lease for owner. It returns
// ErrImportLeaseHeld when a different live lease exists.
func (s *Store) TryAcquireImportLease(ctx context.Context, owner string, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(leaseKey))
		if err == nil {
			return ErrImportLeaseHeld
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry := badger.NewEntry([]byte(leaseKey), []byte(owner)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// ReleaseImportLease releases the lease if owner still holds it.
func (s *Store) ReleaseImportLease(ctx context.Context, owner string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(leaseKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var held string
		if err := item.Value(func(val []byte) error {
			held = string(val)
			return nil
		}); err != nil {
			return err
		}
		if held == owner {
			return txn.Delete([]byte(leaseKey))
		}
		return nil
	})
}

// Ping verifies the database is still usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(snapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
