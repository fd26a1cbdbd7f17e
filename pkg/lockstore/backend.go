package lockstore

import (
	"context"
	"errors"
)

// ErrConditionalCheckFailed is the sentinel a Backend returns when a
// conditional write's predicate does not hold. It is internal to the
// store/coordinator boundary — pkg/lockcoordinator never surfaces it to a
// Lock/ReleaseLock caller, translating it into a retry or a typed
// lock.Error instead.
var ErrConditionalCheckFailed = errors.New("lockstore: conditional check failed")

// Record is the persisted shape of a lock: the five reserved attributes
// plus the composite key. Backends translate this to/from their native
// representation (a DynamoDB item, a SQL row, a Badger value, ...).
type Record struct {
	Group                string
	ID                   string
	OwnerName            string
	RecordVersionNumber  string
	LastUpdatedTimeInMs  int64
	LeaseDurationInMs    int64
	AdditionalAttributes map[string]any
}

// Backend is the Store Adapter: five conditional operations over a
// composite-keyed lock table. Every operation either succeeds, fails with
// ErrConditionalCheckFailed, or fails with a wrapped transport error.
type Backend interface {
	// GetLockByGroupAndID performs a strongly-consistent read on the
	// composite key. Returns (nil, nil) if no record exists.
	GetLockByGroupAndID(ctx context.Context, group, id string) (*Record, error)

	// CreateNewLock issues a conditional put with predicate
	// attribute_not_exists(pk) AND attribute_not_exists(sk).
	CreateNewLock(ctx context.Context, rec Record) error

	// UpdateRecordVersionNumberAndTime issues a conditional update (renewal)
	// gated on the prior version AND owner: attribute_exists(pk) AND
	// attribute_exists(sk) AND recordVersionNumber = oldVersion AND
	// ownerName = owner.
	UpdateRecordVersionNumberAndTime(ctx context.Context, group, id, oldVersion, owner, newVersion string, whenMs int64) error

	// UpdateLockWithNewLockContent issues a conditional update (steal)
	// gated only on the prior version (owner is deliberately excluded —
	// stealing is cross-owner by design): attribute_exists(pk) AND
	// attribute_exists(sk) AND recordVersionNumber = existingVersion.
	UpdateLockWithNewLockContent(ctx context.Context, existingVersion string, rec Record) error

	// DeleteLock issues a conditional delete gated on version AND owner:
	// attribute_exists(pk) AND attribute_exists(sk) AND
	// recordVersionNumber = version AND ownerName = owner.
	DeleteLock(ctx context.Context, group, id, version, owner string) error
}
