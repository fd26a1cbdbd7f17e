// Package memory implements pkg/lockstore.Backend as an in-process,
// mutex-protected map, modeled on a plain map-backed store: used by
// pkg/lockcoordinator's tests and for local development without a real
// backend.
package memory

import (
	"context"
	"sync"

	"github.com/condlock/condlock/pkg/lockstore"
)

type key struct {
	group, id string
}

// Backend is an in-process implementation of lockstore.Backend.
type Backend struct {
	mu      sync.Mutex
	records map[key]lockstore.Record
}

// New creates an empty in-process backend.
func New() *Backend {
	return &Backend{records: make(map[key]lockstore.Record)}
}

func (b *Backend) GetLockByGroupAndID(_ context.Context, group, id string) (*lockstore.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[key{group, id}]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (b *Backend) CreateNewLock(_ context.Context, rec lockstore.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{rec.Group, rec.ID}
	if _, exists := b.records[k]; exists {
		return lockstore.ErrConditionalCheckFailed
	}
	b.records[k] = rec
	return nil
}

func (b *Backend) UpdateRecordVersionNumberAndTime(_ context.Context, group, id, oldVersion, owner, newVersion string, whenMs int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{group, id}
	rec, ok := b.records[k]
	if !ok || rec.RecordVersionNumber != oldVersion || rec.OwnerName != owner {
		return lockstore.ErrConditionalCheckFailed
	}
	rec.RecordVersionNumber = newVersion
	rec.LastUpdatedTimeInMs = whenMs
	b.records[k] = rec
	return nil
}

func (b *Backend) UpdateLockWithNewLockContent(_ context.Context, existingVersion string, rec lockstore.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{rec.Group, rec.ID}
	cur, ok := b.records[k]
	if !ok || cur.RecordVersionNumber != existingVersion {
		return lockstore.ErrConditionalCheckFailed
	}
	b.records[k] = rec
	return nil
}

func (b *Backend) DeleteLock(_ context.Context, group, id, version, owner string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{group, id}
	rec, ok := b.records[k]
	if !ok || rec.RecordVersionNumber != version || rec.OwnerName != owner {
		return lockstore.ErrConditionalCheckFailed
	}
	delete(b.records, k)
	return nil
}
