package lock

import "time"

// Lock is the in-memory representation of a lock: identity, lease
// parameters, the tentative/committed version token, and the acquisition
// flag. It mirrors the persisted record (see pkg/lockstore) plus fields
// that never leave this process.
type Lock struct {
	Group string
	ID    string

	// OwnerName identifies the Coordinator instance that created this
	// handle. Bound into the renewal and delete predicates.
	OwnerName string

	// RecordVersionNumber is the opaque version token last written or
	// observed for this handle. Regenerated on every write attempt.
	RecordVersionNumber string

	// LastUpdatedTimeInMs is the write timestamp of RecordVersionNumber,
	// in milliseconds since epoch, from the writer's local clock.
	LastUpdatedTimeInMs int64

	LeaseDurationInMs    int64
	AdditionalAttributes map[string]any

	IsAcquired bool

	ProlongLeaseEnabled bool
	ProlongEveryMs      int64
	TrustLocalTime      bool
	WaitDurationInMs    int64
	MaxRetryCount       *int

	// cancelProlongation stops the background renewal task started on
	// COMMIT. nil until prolongation is scheduled; released() calls it
	// and clears it so release is idempotent.
	cancelProlongation func()
}

// Create builds a new handle for (group, id, owner) from opts, validating
// invariant 2 before returning. Input constraints (non-empty group/id/owner)
// are enforced by the struct-tag validator via Options plus these explicit
// checks, since the identity fields live outside Options.
func Create(group, id, owner string, opts Options) (*Lock, error) {
	if group == "" {
		return nil, NewOptionsValidationError("lock group must not be empty")
	}
	if id == "" {
		return nil, NewOptionsValidationError("lock id must not be empty")
	}
	if owner == "" {
		return nil, NewOptionsValidationError("owner must not be empty")
	}

	opts = opts.applyDefaults()
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	return &Lock{
		Group:                group,
		ID:                   id,
		OwnerName:            owner,
		LeaseDurationInMs:    opts.LeaseDurationInMs,
		AdditionalAttributes: opts.AdditionalAttributes,
		ProlongLeaseEnabled:  opts.ProlongLeaseEnabled,
		ProlongEveryMs:       opts.ProlongEveryMs,
		TrustLocalTime:       opts.TrustLocalTime,
		WaitDurationInMs:     opts.waitDurationInMs(),
		MaxRetryCount:        opts.MaxRetryCount,
	}, nil
}

// UID returns the unique-identifier form used in logs and the registry:
// "{group}|{id}".
func (l *Lock) UID() string {
	return l.Group + "|" + l.ID
}

// LeaseExpirationTimePassed reports whether the lease has expired by the
// local clock. Returns false if LastUpdatedTimeInMs is unset (zero).
func (l *Lock) LeaseExpirationTimePassed() bool {
	if l.LastUpdatedTimeInMs == 0 {
		return false
	}
	now := time.Now().UnixMilli()
	return now > l.LastUpdatedTimeInMs+l.LeaseDurationInMs
}

// AttemptLocking sets the tentative version token and write time ahead of
// a conditional write, without marking the handle acquired.
func (l *Lock) AttemptLocking(version string, whenMs int64) {
	l.RecordVersionNumber = version
	l.LastUpdatedTimeInMs = whenMs
}

// ResetLockingAttempt clears a tentative version/time after a failed
// conditional write, so the next ACQUIRE iteration starts clean.
func (l *Lock) ResetLockingAttempt() {
	l.RecordVersionNumber = ""
	l.LastUpdatedTimeInMs = 0
}

// Acquired commits the tentative version/time set by AttemptLocking and
// marks the handle held. Called once, on COMMIT.
func (l *Lock) Acquired() {
	l.IsAcquired = true
}

// Prolonged records a successful renewal's new version token and time.
func (l *Lock) Prolonged(version string, whenMs int64) {
	l.RecordVersionNumber = version
	l.LastUpdatedTimeInMs = whenMs
}

// Released marks the handle no longer acquired and cancels any scheduled
// prolongation. Idempotent: calling it twice is a no-op the second time.
func (l *Lock) Released() {
	l.IsAcquired = false
	if l.cancelProlongation != nil {
		l.cancelProlongation()
		l.cancelProlongation = nil
	}
}

// SetProlongationCanceller records the cancellation callback for the
// background renewal task started after COMMIT. Owned by
// pkg/lockcoordinator, which is the only caller that starts the task.
func (l *Lock) SetProlongationCanceller(cancel func()) {
	l.cancelProlongation = cancel
}
