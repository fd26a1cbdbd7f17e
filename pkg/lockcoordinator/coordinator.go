// Package lockcoordinator implements the acquisition state machine
// (ACQUIRE -> CREATE_NEW / WAIT_THEN_STEAL / STEAL -> COMMIT), the
// background prolongation scheduler, and the release paths described in
// the lock coordinator specification. It is the orchestration layer sitting
// between pkg/lock (the handle) and pkg/lockstore (the backend).
package lockcoordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/condlock/condlock/internal/logger"
	"github.com/condlock/condlock/internal/telemetry"
	"github.com/condlock/condlock/pkg/lock"
	"github.com/condlock/condlock/pkg/lockstore"
)

// LogEvent is a single lock lifecycle event, mirrored to an optional
// LogCallback alongside the coordinator's own structured logging.
type LogEvent struct {
	Level string // "info", "warn", "error"
	State string // ACQUIRE, CREATE_NEW, WAIT_THEN_STEAL, STEAL, COMMIT, PROLONG, RELEASE
	Group string
	ID    string
	Msg   string
}

// LogCallback receives lock lifecycle events as they happen.
type LogCallback func(LogEvent)

// registryEntry pairs a held handle with a mutex guarding the prolongation
// goroutine's reads and writes of the handle's fields. ReleaseLock does not
// take it; it relies on Released() waiting for that goroutine to exit
// before it reads the handle's version/owner.
type registryEntry struct {
	handle *lock.Lock
	mu     sync.Mutex
}

// Coordinator owns one identity (ownerName) and the registry of handles it
// currently holds. A single Coordinator is safe for concurrent use by
// multiple goroutines; Lock/ReleaseLock/ReleaseAllLocks calls for different
// (group, id) pairs proceed independently.
type Coordinator struct {
	backend     lockstore.Backend
	descriptor  *lockstore.TableDescriptor
	ownerName   string
	backendName string

	mu       sync.Mutex
	registry map[string]*registryEntry

	metrics     *Metrics
	logCallback LogCallback
}

// New creates a Coordinator bound to backend and descriptor. descriptor may
// be nil, in which case lockstore.DefaultTableDescriptor() is used. The
// owner name defaults to a randomly generated UUID; override it with
// WithOwnerName for deterministic tests.
func New(backend lockstore.Backend, descriptor *lockstore.TableDescriptor, opts ...CoordinatorOption) (*Coordinator, error) {
	if backend == nil {
		return nil, errors.New("lockcoordinator: backend must not be nil")
	}
	if descriptor == nil {
		descriptor = lockstore.DefaultTableDescriptor()
	}

	c := &Coordinator{
		backend:     backend,
		descriptor:  descriptor,
		ownerName:   uuid.NewString(),
		backendName: "unknown",
		registry:    make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OwnerName returns this coordinator instance's identity, bound into every
// renewal and delete predicate it issues.
func (c *Coordinator) OwnerName() string {
	return c.ownerName
}

// Lookup returns the handle this coordinator currently holds for (group,
// id), if any. Intended for callers (e.g. an HTTP front end) that accept a
// lock by group/id and only learn which in-process handle that maps to
// later, at release time.
func (c *Coordinator) Lookup(group, id string) (*lock.Lock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.registry[group+"|"+id]
	if !ok {
		return nil, false
	}
	return entry.handle, true
}

func (c *Coordinator) emit(ctx context.Context, level, state, group, id, msg string, attrs ...any) {
	switch level {
	case "warn":
		logger.WarnCtx(ctx, msg, attrs...)
	case "error":
		logger.ErrorCtx(ctx, msg, attrs...)
	default:
		logger.InfoCtx(ctx, msg, attrs...)
	}
	if c.logCallback != nil {
		c.logCallback(LogEvent{Level: level, State: state, Group: group, ID: id, Msg: msg})
	}
}

// Lock runs the acquisition state machine for (group, id) and returns a
// held handle on success. On success, if opts enables prolongation, a
// background renewal goroutine is armed before Lock returns.
func (c *Coordinator) Lock(ctx context.Context, group, id string, opts lock.Options) (*lock.Lock, error) {
	start := time.Now()

	handle, err := lock.Create(group, id, c.ownerName, opts)
	if err != nil {
		return nil, err
	}

	lc := logger.NewLogContext(group, id).WithOwner(c.ownerName)
	ctx = logger.WithContext(ctx, lc)
	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockAcquire, group, id, telemetry.Owner(c.ownerName))
	defer span.End()

	err = c.acquire(ctx, handle, lc)
	c.metrics.ObserveAcquireLatency(c.backendName, time.Since(start))
	if err != nil {
		c.metrics.ObserveAcquire(c.backendName, OutcomeDenied)
		return nil, err
	}
	return handle, nil
}

// acquire runs the ACQUIRE loop: re-read, then CREATE_NEW if the record is
// absent, or WAIT_THEN_STEAL/STEAL depending on TrustLocalTime, retrying
// from the top on every lost race until MaxRetryCount is exhausted or ctx
// is cancelled.
func (c *Coordinator) acquire(ctx context.Context, handle *lock.Lock, lc *logger.LogContext) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt++
		if handle.MaxRetryCount != nil && attempt > *handle.MaxRetryCount+1 {
			c.emit(ctx, "warn", "ACQUIRE", handle.Group, handle.ID, "lock acquisition exhausted retries",
				logger.State("ACQUIRE"), logger.Attempt(attempt-1))
			return lock.NewNotGrantedError(handle.Group, handle.ID,
				fmt.Sprintf("exhausted %d retries", *handle.MaxRetryCount))
		}

		lc = lc.WithAttempt(attempt)
		ctx = logger.WithContext(ctx, lc)

		existing, err := c.getExisting(ctx, handle)
		if err != nil {
			return err
		}
		c.emit(ctx, "info", "ACQUIRE", handle.Group, handle.ID, "lock record read",
			logger.State("ACQUIRE"), logger.Attempt(attempt))

		if existing == nil {
			ok, err := c.createNew(ctx, handle)
			if err != nil {
				return err
			}
			if ok {
				c.emit(ctx, "info", "CREATE_NEW", handle.Group, handle.ID, "lock record created",
					logger.State("CREATE_NEW"), logger.Version(handle.RecordVersionNumber))
				c.commit(ctx, handle)
				return nil
			}
			continue
		}

		if handle.TrustLocalTime {
			if !recordExpired(existing) {
				if err := c.wait(ctx, handle, handle.WaitDurationInMs); err != nil {
					return err
				}
				continue
			}
			ok, err := c.steal(ctx, handle, existing)
			if err != nil {
				return err
			}
			if ok {
				c.commit(ctx, handle)
				return nil
			}
			continue
		}

		// WAIT_THEN_STEAL: conservative path. Wait out the existing
		// holder's own lease duration, not the caller's WaitDurationInMs,
		// then re-read and steal only if the lease has since expired.
		if err := c.wait(ctx, handle, existing.LeaseDurationInMs); err != nil {
			return err
		}

		reread, err := c.getExisting(ctx, handle)
		if err != nil {
			return err
		}
		if reread == nil || !recordExpired(reread) {
			continue
		}

		ok, err := c.steal(ctx, handle, reread)
		if err != nil {
			return err
		}
		if ok {
			c.commit(ctx, handle)
			return nil
		}
	}
}

func recordExpired(rec *lockstore.Record) bool {
	if rec.LastUpdatedTimeInMs == 0 {
		return false
	}
	return time.Now().UnixMilli() > rec.LastUpdatedTimeInMs+rec.LeaseDurationInMs
}

func (c *Coordinator) getExisting(ctx context.Context, handle *lock.Lock) (*lockstore.Record, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, telemetry.SpanStoreGet, c.backendName, telemetry.Table(c.descriptor.TableName))
	defer span.End()

	rec, err := c.backend.GetLockByGroupAndID(ctx, handle.Group, handle.ID)
	if err != nil {
		c.emit(ctx, "error", "ACQUIRE", handle.Group, handle.ID, "backend read failed", logger.Err(err))
		return nil, fmt.Errorf("lockcoordinator: get lock: %w", err)
	}
	return rec, nil
}

func (c *Coordinator) newRecord(handle *lock.Lock, version string, whenMs int64) lockstore.Record {
	return lockstore.Record{
		Group:                handle.Group,
		ID:                   handle.ID,
		OwnerName:            handle.OwnerName,
		RecordVersionNumber:  version,
		LastUpdatedTimeInMs:  whenMs,
		LeaseDurationInMs:    handle.LeaseDurationInMs,
		AdditionalAttributes: handle.AdditionalAttributes,
	}
}

func (c *Coordinator) createNew(ctx context.Context, handle *lock.Lock) (bool, error) {
	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockCreateNew, handle.Group, handle.ID)
	defer span.End()

	version := uuid.NewString()
	now := time.Now().UnixMilli()
	handle.AttemptLocking(version, now)

	err := c.backend.CreateNewLock(ctx, c.newRecord(handle, version, now))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
		handle.ResetLockingAttempt()
		c.metrics.ObserveAcquire(c.backendName, OutcomeRetried)
		return false, nil
	}
	c.emit(ctx, "error", "CREATE_NEW", handle.Group, handle.ID, "backend create failed", logger.Err(err))
	return false, fmt.Errorf("lockcoordinator: create lock: %w", err)
}

func (c *Coordinator) steal(ctx context.Context, handle *lock.Lock, existing *lockstore.Record) (bool, error) {
	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockSteal, handle.Group, handle.ID,
		telemetry.Version(existing.RecordVersionNumber))
	defer span.End()

	version := uuid.NewString()
	now := time.Now().UnixMilli()
	handle.AttemptLocking(version, now)

	err := c.backend.UpdateLockWithNewLockContent(ctx, existing.RecordVersionNumber, c.newRecord(handle, version, now))
	if err == nil {
		c.metrics.ObserveSteal(c.backendName)
		c.emit(ctx, "info", "STEAL", handle.Group, handle.ID, "lock stolen from expired lease",
			logger.State("STEAL"), logger.Version(version), slog.String(logger.KeyPrevVersion, existing.RecordVersionNumber))
		return true, nil
	}
	if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
		handle.ResetLockingAttempt()
		c.metrics.ObserveAcquire(c.backendName, OutcomeRetried)
		return false, nil
	}
	c.emit(ctx, "error", "STEAL", handle.Group, handle.ID, "backend steal failed", logger.Err(err))
	return false, fmt.Errorf("lockcoordinator: steal lock: %w", err)
}

// wait blocks for durationMs, or returns early if ctx is cancelled. A
// non-positive duration returns immediately. The caller picks durationMs —
// the TrustLocalTime path passes its own WaitDurationInMs, the
// WAIT_THEN_STEAL path passes the existing holder's LeaseDurationInMs,
// since there is no local clock to trust to decide when to re-read sooner.
func (c *Coordinator) wait(ctx context.Context, handle *lock.Lock, durationMs int64) error {
	d := time.Duration(durationMs) * time.Millisecond
	if d <= 0 {
		return nil
	}

	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockWait, handle.Group, handle.ID, telemetry.WaitMs(durationMs))
	defer span.End()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// commit marks handle acquired, registers it, and arms the prolongation
// scheduler if enabled. Called exactly once per successful acquisition.
func (c *Coordinator) commit(ctx context.Context, handle *lock.Lock) {
	_, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockCommit, handle.Group, handle.ID, telemetry.Version(handle.RecordVersionNumber))
	defer span.End()

	handle.Acquired()

	entry := &registryEntry{handle: handle}
	c.mu.Lock()
	c.registry[handle.UID()] = entry
	c.mu.Unlock()

	if handle.ProlongLeaseEnabled {
		c.startProlongation(entry)
	}

	c.metrics.ObserveAcquire(c.backendName, OutcomeGranted)
	c.emit(ctx, "info", "COMMIT", handle.Group, handle.ID, "lock acquired",
		logger.State("COMMIT"), logger.Version(handle.RecordVersionNumber), logger.Outcome(OutcomeGranted))
}

// startProlongation arms a background renewal goroutine for entry. The
// cancellation callback stored on the handle cancels the goroutine's
// context and blocks until it has fully exited, so that by the time
// ReleaseLock reads the handle's version/owner for the final delete, no
// writer remains.
func (c *Coordinator) startProlongation(entry *registryEntry) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	entry.handle.SetProlongationCanceller(func() {
		cancel()
		<-stopped
	})

	go c.prolongLoop(ctx, entry, stopped)
}

// prolongLoop fires every ProlongEveryMs, renewing the lease by writing a
// fresh version token gated on the previously observed version and owner.
// It stops (without error) if the handle is released, and stops after
// logging a warning if a renewal loses the conditional check — meaning
// another owner has already stolen the lock — rather than looping forever
// against a lease it no longer holds.
func (c *Coordinator) prolongLoop(ctx context.Context, entry *registryEntry, stopped chan struct{}) {
	defer close(stopped)

	entry.mu.Lock()
	period := time.Duration(entry.handle.ProlongEveryMs) * time.Millisecond
	group, id, owner := entry.handle.Group, entry.handle.ID, entry.handle.OwnerName
	entry.mu.Unlock()

	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		c.mu.Lock()
		_, stillRegistered := c.registry[entry.handle.UID()]
		c.mu.Unlock()
		if !stillRegistered {
			return
		}

		entry.mu.Lock()
		if !entry.handle.IsAcquired {
			entry.mu.Unlock()
			return
		}
		oldVersion := entry.handle.RecordVersionNumber
		entry.mu.Unlock()

		newVersion := uuid.NewString()
		now := time.Now().UnixMilli()

		lc := logger.NewLogContext(group, id).WithOwner(owner)
		rctx := logger.WithContext(ctx, lc)
		rctx, span := telemetry.StartLockSpan(rctx, telemetry.SpanLockProlong, group, id, telemetry.Version(newVersion))

		err := c.backend.UpdateRecordVersionNumberAndTime(rctx, group, id, oldVersion, owner, newVersion, now)
		span.End()

		if err != nil {
			if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
				c.metrics.ObserveRenew(c.backendName, OutcomeDenied)
				c.emit(rctx, "warn", "PROLONG", group, id, "lease renewal lost race, stopping prolongation",
					logger.State("PROLONG"), logger.Version(oldVersion))
			} else {
				c.metrics.ObserveRenew(c.backendName, "error")
				c.emit(rctx, "error", "PROLONG", group, id, "lease renewal failed, stopping prolongation", logger.Err(err))
			}
			return
		}

		entry.mu.Lock()
		entry.handle.Prolonged(newVersion, now)
		entry.mu.Unlock()

		c.metrics.ObserveRenew(c.backendName, OutcomeGranted)
		logger.DebugCtx(rctx, "lease renewed", logger.State("PROLONG"), logger.Version(newVersion))

		timer.Reset(period)
	}
}

// ReleaseLock releases a handle this coordinator holds. It cancels and
// awaits any in-flight prolongation before reading the handle's
// version/owner, then issues a conditional delete gated on both. A lost
// conditional check (the lock was already stolen or deleted) is not an
// error: release is best-effort from the caller's perspective once it has
// relinquished its claim.
func (c *Coordinator) ReleaseLock(ctx context.Context, handle *lock.Lock) error {
	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockRelease, handle.Group, handle.ID)
	defer span.End()

	c.mu.Lock()
	delete(c.registry, handle.UID())
	c.mu.Unlock()

	handle.Released()

	version, owner := handle.RecordVersionNumber, handle.OwnerName
	err := c.backend.DeleteLock(ctx, handle.Group, handle.ID, version, owner)
	if err != nil {
		if errors.Is(err, lockstore.ErrConditionalCheckFailed) {
			c.emit(ctx, "warn", "RELEASE", handle.Group, handle.ID, "release delete lost race, already stolen or deleted",
				logger.State("RELEASE"))
			return nil
		}
		c.emit(ctx, "error", "RELEASE", handle.Group, handle.ID, "backend delete failed", logger.Err(err))
		return fmt.Errorf("lockcoordinator: delete lock: %w", err)
	}

	c.metrics.ObserveRelease(c.backendName)
	c.emit(ctx, "info", "RELEASE", handle.Group, handle.ID, "lock released", logger.State("RELEASE"), logger.Outcome("released"))
	return nil
}

// ReleaseAllLocks releases every handle currently in this coordinator's
// registry. Deletes are dispatched concurrently but ReleaseAllLocks waits
// for all of them to finish before returning, collecting any non-conditional
// errors with errors.Join. The upstream pattern this is modeled on dispatches
// deletes without awaiting them; that omission is not repeated here.
func (c *Coordinator) ReleaseAllLocks(ctx context.Context) error {
	c.mu.Lock()
	entries := make([]*registryEntry, 0, len(c.registry))
	for k, e := range c.registry {
		entries = append(entries, e)
		delete(c.registry, k)
	}
	c.mu.Unlock()

	ctx, span := telemetry.StartLockSpan(ctx, telemetry.SpanLockReleaseAll, "*", "*", telemetry.Attempt(len(entries)))
	defer span.End()

	var wg sync.WaitGroup
	errs := make([]error, len(entries))
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e *registryEntry) {
			defer wg.Done()

			e.handle.Released()
			version, owner := e.handle.RecordVersionNumber, e.handle.OwnerName

			err := c.backend.DeleteLock(ctx, e.handle.Group, e.handle.ID, version, owner)
			if err != nil && !errors.Is(err, lockstore.ErrConditionalCheckFailed) {
				errs[i] = fmt.Errorf("lockcoordinator: release %s: %w", e.handle.UID(), err)
			}
		}(i, e)
	}
	wg.Wait()

	var joined []error
	for _, err := range errs {
		if err != nil {
			joined = append(joined, err)
		}
	}
	if len(joined) > 0 {
		c.emit(ctx, "error", "RELEASE_ALL", "*", "*", "one or more releases failed", slog.Int("failed_count", len(joined)))
		return errors.Join(joined...)
	}

	c.metrics.ObserveRelease(c.backendName)
	c.emit(ctx, "info", "RELEASE_ALL", "*", "*", "all locks released", slog.Int("count", len(entries)))
	return nil
}
