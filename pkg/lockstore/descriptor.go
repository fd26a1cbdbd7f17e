// Package lockstore defines the Store Adapter: the Backend interface that
// translates five lock-plane operations into conditional single-item
// writes against an external key-value backend, plus the table descriptor
// shared by every concrete backend under pkg/lockstore/*.
package lockstore

import (
	"fmt"

	"github.com/condlock/condlock/pkg/lock"
)

// Reserved attribute names. The table descriptor forbids the partition
// key, sort key, or TTL key from colliding with any of these.
const (
	AttrRecordVersionNumber = "recordVersionNumber"
	AttrOwnerName           = "ownerName"
	AttrLastUpdatedTimeInMs = "lastUpdatedTimeInMs"
	AttrLeaseDurationInMs   = "leaseDurationInMs"
	AttrAdditionalAttrs     = "additionalAttributes"
)

func isReservedName(name string) bool {
	switch name {
	case AttrRecordVersionNumber, AttrOwnerName, AttrLastUpdatedTimeInMs,
		AttrLeaseDurationInMs, AttrAdditionalAttrs:
		return true
	default:
		return false
	}
}

// Default table descriptor values.
const (
	DefaultTableName    = "LockTable"
	DefaultPartitionKey = "lockId"
	DefaultSortKey      = "lockGroup"
	DefaultTTLInMs      = 60 * 60 * 1000 // 1 hour
)

// TableDescriptor is the immutable description of where and how lock
// records are stored. It carries no connection state — concrete backends
// pair a TableDescriptor with their own handle (a *sql.DB, a *badger.DB,
// a DynamoDB client, ...).
type TableDescriptor struct {
	TableName    string
	PartitionKey string
	SortKey      string

	// TTLKey, when non-empty, enables the hygiene-only TTL attribute.
	TTLKey   string
	TTLInMs  int64
}

// NewTableDescriptor builds a TableDescriptor, applying defaults for any
// zero-valued field and rejecting reserved-name collisions.
func NewTableDescriptor(tableName, partitionKey, sortKey, ttlKey string, ttlInMs int64) (*TableDescriptor, error) {
	d := &TableDescriptor{
		TableName:    tableName,
		PartitionKey: partitionKey,
		SortKey:      sortKey,
		TTLKey:       ttlKey,
		TTLInMs:      ttlInMs,
	}
	if d.TableName == "" {
		d.TableName = DefaultTableName
	}
	if d.PartitionKey == "" {
		d.PartitionKey = DefaultPartitionKey
	}
	if d.SortKey == "" {
		d.SortKey = DefaultSortKey
	}
	if d.TTLInMs == 0 {
		d.TTLInMs = DefaultTTLInMs
	}

	if isReservedName(d.PartitionKey) {
		return nil, lock.NewTableConfigValidationError(
			fmt.Sprintf("partition key %q collides with a reserved attribute name", d.PartitionKey))
	}
	if isReservedName(d.SortKey) {
		return nil, lock.NewTableConfigValidationError(
			fmt.Sprintf("sort key %q collides with a reserved attribute name", d.SortKey))
	}
	if d.TTLKey != "" && isReservedName(d.TTLKey) {
		return nil, lock.NewTableConfigValidationError(
			fmt.Sprintf("TTL key %q collides with a reserved attribute name", d.TTLKey))
	}
	if d.PartitionKey == d.SortKey {
		return nil, lock.NewTableConfigValidationError("partition key and sort key must differ")
	}

	return d, nil
}

// DefaultTableDescriptor returns a TableDescriptor with every field at its
// spec-mandated default and TTL disabled.
func DefaultTableDescriptor() *TableDescriptor {
	d, _ := NewTableDescriptor("", "", "", "", 0)
	return d
}

// TTLEnabled reports whether this descriptor enables the TTL attribute.
func (d *TableDescriptor) TTLEnabled() bool {
	return d.TTLKey != ""
}

// TTLValue computes the TTL attribute value (round((nowMs + ttlInMs)/1000),
// i.e. seconds since epoch) for a write happening at nowMs.
func (d *TableDescriptor) TTLValue(nowMs int64) int64 {
	return (nowMs + d.TTLInMs + 500) / 1000
}
