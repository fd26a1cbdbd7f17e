package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for lock operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Lock identity attributes
	// ========================================================================
	AttrLockGroup = "lock.group" // lock group
	AttrLockID    = "lock.id"    // lock id within the group
	AttrUID       = "lock.uid"   // unique identifier "{group}|{id}"
	AttrOwner     = "lock.owner" // coordinator-instance owner name (UUID)

	// ========================================================================
	// Acquisition state machine attributes
	// ========================================================================
	AttrState       = "lock.state"        // ACQUIRE, CREATE_NEW, WAIT_THEN_STEAL, STEAL, COMMIT
	AttrAttempt     = "lock.attempt"      // current ACQUIRE retry count
	AttrMaxRetry    = "lock.max_retry"    // configured MaxRetryCount
	AttrVersion     = "lock.version"      // recordVersionNumber involved in the attempt
	AttrPrevVersion = "lock.prev_version" // recordVersionNumber read before the attempt
	AttrLeaseMs     = "lock.lease_ms"     // leaseDurationInMs
	AttrProlongMs   = "lock.prolong_ms"   // prolongEveryMs
	AttrTrustLocal  = "lock.trust_local"  // trustLocalTime
	AttrWaitMs      = "lock.wait_ms"      // waitDurationInMs / computed wait duration

	// ========================================================================
	// Backend / outcome attributes
	// ========================================================================
	AttrBackend   = "lock.backend" // dynamodb, sql, badger, memory
	AttrTable     = "lock.table"   // table/collection name
	AttrOutcome   = "lock.outcome" // granted, denied, retried, stolen, renewed, released
	AttrStatus    = "lock.status"
	AttrStatusMsg = "lock.status_msg"

	// ========================================================================
	// Client / auth attributes (condlockd HTTP surface)
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrUsername   = "user.name"
	AttrAuth       = "auth.method"
)

// Span names for lock operations.
// Format: lock.<operation> for coordinator-level spans
// Format: <component>.<operation> for internal operations
const (
	// ========================================================================
	// Coordinator spans
	// ========================================================================
	SpanLockAcquire    = "lock.acquire"
	SpanLockCreateNew  = "lock.create_new"
	SpanLockWait       = "lock.wait_then_steal"
	SpanLockSteal      = "lock.steal"
	SpanLockCommit     = "lock.commit"
	SpanLockProlong    = "lock.prolong"
	SpanLockRelease    = "lock.release"
	SpanLockReleaseAll = "lock.release_all"

	// ========================================================================
	// Store backend spans
	// ========================================================================
	SpanStoreGet     = "lockstore.get"
	SpanStoreCreate  = "lockstore.create_new"
	SpanStoreUpdate  = "lockstore.update_version"
	SpanStoreReplace = "lockstore.update_content"
	SpanStoreDelete  = "lockstore.delete"
)

// LockGroup returns an attribute for the lock group.
func LockGroup(group string) attribute.KeyValue {
	return attribute.String(AttrLockGroup, group)
}

// LockID returns an attribute for the lock id.
func LockID(id string) attribute.KeyValue {
	return attribute.String(AttrLockID, id)
}

// UniqueID returns an attribute for the "{group}|{id}" unique identifier.
func UniqueID(uid string) attribute.KeyValue {
	return attribute.String(AttrUID, uid)
}

// Owner returns an attribute for the owner name.
func Owner(owner string) attribute.KeyValue {
	return attribute.String(AttrOwner, owner)
}

// State returns an attribute for the acquisition state-machine state.
func State(state string) attribute.KeyValue {
	return attribute.String(AttrState, state)
}

// Attempt returns an attribute for the retry-attempt count.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// Version returns an attribute for a recordVersionNumber.
func Version(v string) attribute.KeyValue {
	return attribute.String(AttrVersion, v)
}

// Backend returns an attribute for the backend name.
func Backend(name string) attribute.KeyValue {
	return attribute.String(AttrBackend, name)
}

// Table returns an attribute for the table/collection name.
func Table(name string) attribute.KeyValue {
	return attribute.String(AttrTable, name)
}

// Outcome returns an attribute for the operation outcome.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// LeaseMs returns an attribute for the lease duration in milliseconds.
func LeaseMs(ms int64) attribute.KeyValue {
	return attribute.Int64(AttrLeaseMs, ms)
}

// WaitMs returns an attribute for a wait duration in milliseconds.
func WaitMs(ms int64) attribute.KeyValue {
	return attribute.Int64(AttrWaitMs, ms)
}

// ClientIP returns an attribute for client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for the full client address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Username returns an attribute for the authenticated caller's username.
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// AuthMethod returns an attribute for the authentication method used.
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuth, method)
}

// StartLockSpan starts a span for a coordinator-level lock operation,
// tagging it with the lock's group/id.
func StartLockSpan(ctx context.Context, spanName, group, id string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		LockGroup(group),
		LockID(id),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a store-backend operation.
func StartStoreSpan(ctx context.Context, spanName, backend string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Backend(backend),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
