// Package badger implements pkg/lockstore.Backend against an embedded
// BadgerDB instance, for single-node deployments that want a durable lock
// table without standing up a separate database.
//
// Every conditional operation reads and writes inside a single Badger
// transaction: the predicate check and the write are atomic with respect to
// other transactions by construction, and a conflicting concurrent commit
// surfaces as badger.ErrConflict, which this backend folds into
// ErrConditionalCheckFailed the same way a failed predicate does.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/condlock/condlock/pkg/lockstore"
)

// Data Type   Prefix  Key Format      Value Type
// Lock Record "l:"    l:<group>:<id>  lockRecord (JSON)
const prefixLock = "l:"

func lockKey(group, id string) []byte {
	return []byte(prefixLock + group + ":" + id)
}

// lockRecord is the JSON-encoded value stored under a lock key.
type lockRecord struct {
	OwnerName            string         `json:"ownerName"`
	RecordVersionNumber  string         `json:"recordVersionNumber"`
	LastUpdatedTimeInMs  int64          `json:"lastUpdatedTimeInMs"`
	LeaseDurationInMs    int64          `json:"leaseDurationInMs"`
	AdditionalAttributes map[string]any `json:"additionalAttributes,omitempty"`
}

func toRecord(group, id string, r lockRecord) *lockstore.Record {
	return &lockstore.Record{
		Group:                group,
		ID:                   id,
		OwnerName:            r.OwnerName,
		RecordVersionNumber:  r.RecordVersionNumber,
		LastUpdatedTimeInMs:  r.LastUpdatedTimeInMs,
		LeaseDurationInMs:    r.LeaseDurationInMs,
		AdditionalAttributes: r.AdditionalAttributes,
	}
}

func fromRecord(rec lockstore.Record) lockRecord {
	return lockRecord{
		OwnerName:            rec.OwnerName,
		RecordVersionNumber:  rec.RecordVersionNumber,
		LastUpdatedTimeInMs:  rec.LastUpdatedTimeInMs,
		LeaseDurationInMs:    rec.LeaseDurationInMs,
		AdditionalAttributes: rec.AdditionalAttributes,
	}
}

// Backend implements lockstore.Backend against an embedded BadgerDB.
type Backend struct {
	db         *badgerdb.DB
	descriptor *lockstore.TableDescriptor
}

// Open opens (creating if necessary) a BadgerDB instance rooted at dir and
// returns a Backend. Callers own the returned Backend's lifetime and must
// call Close when done.
func Open(dir string, descriptor *lockstore.TableDescriptor) (*Backend, error) {
	if descriptor == nil {
		descriptor = lockstore.DefaultTableDescriptor()
	}
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &Backend{db: db, descriptor: descriptor}, nil
}

// New wraps an already-open BadgerDB handle, for callers that manage the
// database lifecycle themselves (e.g. sharing one instance across several
// stores).
func New(db *badgerdb.DB, descriptor *lockstore.TableDescriptor) *Backend {
	if descriptor == nil {
		descriptor = lockstore.DefaultTableDescriptor()
	}
	return &Backend{db: db, descriptor: descriptor}
}

// Close releases the underlying BadgerDB handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) entryFor(group, id string, rec lockRecord) (*badgerdb.Entry, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("badger: encode record: %w", err)
	}
	entry := badgerdb.NewEntry(lockKey(group, id), value)
	if b.descriptor.TTLEnabled() {
		entry = entry.WithTTL(time.Duration(b.descriptor.TTLInMs) * time.Millisecond)
	}
	return entry, nil
}

func (b *Backend) getRecord(txn *badgerdb.Txn, group, id string) (*lockRecord, error) {
	item, err := txn.Get(lockKey(group, id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec lockRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("badger: decode record: %w", err)
	}
	return &rec, nil
}

// GetLockByGroupAndID reads the current record for (group, id), if any.
func (b *Backend) GetLockByGroupAndID(ctx context.Context, group, id string) (*lockstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *lockstore.Record
	err := b.db.View(func(txn *badgerdb.Txn) error {
		r, err := b.getRecord(txn, group, id)
		if err != nil {
			return err
		}
		if r == nil {
			return nil
		}
		rec = toRecord(group, id, *r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: get lock: %w", err)
	}
	return rec, nil
}

// mapTxnError folds a Badger transaction-conflict error into
// ErrConditionalCheckFailed, the same sentinel a failed predicate produces.
func mapTxnError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badgerdb.ErrConflict) {
		return lockstore.ErrConditionalCheckFailed
	}
	return err
}

// CreateNewLock writes a new record, failing with ErrConditionalCheckFailed
// if a record already exists under (group, id) — the attribute_not_exists
// predicate's equivalent for a key-value store with no native conditional
// put.
func (b *Backend) CreateNewLock(ctx context.Context, rec lockstore.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := b.getRecord(txn, rec.Group, rec.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return lockstore.ErrConditionalCheckFailed
		}

		entry, err := b.entryFor(rec.Group, rec.ID, fromRecord(rec))
		if err != nil {
			return err
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("badger: create lock: %w", mapTxnError(err))
	}
	return nil
}

// UpdateRecordVersionNumberAndTime renews the lease, gated on the record
// still carrying oldVersion and owner.
func (b *Backend) UpdateRecordVersionNumberAndTime(ctx context.Context, group, id, oldVersion, owner, newVersion string, whenMs int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := b.getRecord(txn, group, id)
		if err != nil {
			return err
		}
		if existing == nil || existing.RecordVersionNumber != oldVersion || existing.OwnerName != owner {
			return lockstore.ErrConditionalCheckFailed
		}

		existing.RecordVersionNumber = newVersion
		existing.LastUpdatedTimeInMs = whenMs

		entry, err := b.entryFor(group, id, *existing)
		if err != nil {
			return err
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("badger: renew lock: %w", mapTxnError(err))
	}
	return nil
}

// UpdateLockWithNewLockContent replaces the record's mutable fields, gated
// only on the prior version — stealing is deliberately cross-owner.
func (b *Backend) UpdateLockWithNewLockContent(ctx context.Context, existingVersion string, rec lockstore.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := b.getRecord(txn, rec.Group, rec.ID)
		if err != nil {
			return err
		}
		if existing == nil || existing.RecordVersionNumber != existingVersion {
			return lockstore.ErrConditionalCheckFailed
		}

		entry, err := b.entryFor(rec.Group, rec.ID, fromRecord(rec))
		if err != nil {
			return err
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("badger: steal lock: %w", mapTxnError(err))
	}
	return nil
}

// DeleteLock removes the record, gated on version and owner.
func (b *Backend) DeleteLock(ctx context.Context, group, id, version, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := b.getRecord(txn, group, id)
		if err != nil {
			return err
		}
		if existing == nil || existing.RecordVersionNumber != version || existing.OwnerName != owner {
			return lockstore.ErrConditionalCheckFailed
		}
		return txn.Delete(lockKey(group, id))
	})
	if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("badger: delete lock: %w", mapTxnError(err))
	}
	return nil
}
