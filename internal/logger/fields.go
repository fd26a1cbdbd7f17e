package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging across the lock coordinator,
// store backends, and the condlockd service. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Lock Identity
	// ========================================================================
	KeyLockGroup = "lock_group" // lock group
	KeyLockID    = "lock_id"    // lock id within the group
	KeyUID       = "uid"        // unique identifier "{group}|{id}"
	KeyOwner     = "owner"      // coordinator-instance owner name (UUID)

	// ========================================================================
	// Acquisition State Machine
	// ========================================================================
	KeyState        = "state"         // ACQUIRE, CREATE_NEW, WAIT_THEN_STEAL, STEAL, COMMIT
	KeyAttempt      = "attempt"       // current ACQUIRE retry count
	KeyMaxRetry     = "max_retry"     // configured MaxRetryCount (-1 = unbounded)
	KeyVersion      = "version"       // recordVersionNumber involved in the attempt
	KeyPrevVersion  = "prev_version"  // recordVersionNumber read before the attempt
	KeyLeaseMs      = "lease_ms"      // leaseDurationInMs
	KeyProlongMs    = "prolong_ms"    // prolongEveryMs
	KeyTrustLocal   = "trust_local"   // trustLocalTime
	KeyWaitMs       = "wait_ms"       // waitDurationInMs / computed wait duration

	// ========================================================================
	// Backend / Outcome
	// ========================================================================
	KeyBackend    = "backend"    // dynamodb, sql, badger, memory
	KeyTable      = "table"      // table/collection name
	KeyOutcome    = "outcome"    // granted, denied, retried, stolen, renewed, released
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// TraceID returns a slog.Attr for the trace ID field.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the span ID field.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// LockGroup returns a slog.Attr for the lock group field.
func LockGroup(group string) slog.Attr { return slog.String(KeyLockGroup, group) }

// LockID returns a slog.Attr for the lock id field.
func LockID(id string) slog.Attr { return slog.String(KeyLockID, id) }

// UniqueID returns a slog.Attr for the "{group}|{id}" unique identifier.
func UniqueID(uid string) slog.Attr { return slog.String(KeyUID, uid) }

// Owner returns a slog.Attr for the owner name field.
func Owner(owner string) slog.Attr { return slog.String(KeyOwner, owner) }

// State returns a slog.Attr for the state-machine state field.
func State(state string) slog.Attr { return slog.String(KeyState, state) }

// Attempt returns a slog.Attr for the retry-attempt field.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// Version returns a slog.Attr for a recordVersionNumber field.
func Version(v string) slog.Attr { return slog.String(KeyVersion, v) }

// Backend returns a slog.Attr for the backend name field.
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// Outcome returns a slog.Attr for the operation-outcome field.
func Outcome(outcome string) slog.Attr { return slog.String(KeyOutcome, outcome) }

// DurationMs returns a slog.Attr for an elapsed-time field, in milliseconds.
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns a slog.Attr for an error field, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
