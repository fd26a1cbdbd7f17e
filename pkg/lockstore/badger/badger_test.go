package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/condlock/condlock/pkg/lockstore"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := Open(t.TempDir(), lockstore.DefaultTableDescriptor())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestBackendCreateAndGetRoundTrips(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	rec := lockstore.Record{
		Group:                "payments",
		ID:                   "invoice-1",
		OwnerName:            "owner-a",
		RecordVersionNumber:  "v1",
		LastUpdatedTimeInMs:  1000,
		LeaseDurationInMs:    5000,
		AdditionalAttributes: map[string]any{"requestId": "req-1"},
	}
	require.NoError(t, backend.CreateNewLock(ctx, rec))

	got, err := backend.GetLockByGroupAndID(ctx, "payments", "invoice-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "owner-a", got.OwnerName)
	require.Equal(t, "v1", got.RecordVersionNumber)
	require.Equal(t, "req-1", got.AdditionalAttributes["requestId"])
}

func TestBackendGetLockByGroupAndIDReturnsNilWhenAbsent(t *testing.T) {
	backend := newTestBackend(t)
	got, err := backend.GetLockByGroupAndID(context.Background(), "payments", "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBackendCreateNewLockFailsWhenAlreadyHeld(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	rec := lockstore.Record{Group: "g", ID: "id", OwnerName: "a", RecordVersionNumber: "v1", LeaseDurationInMs: 1000}
	require.NoError(t, backend.CreateNewLock(ctx, rec))

	err := backend.CreateNewLock(ctx, rec)
	require.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)
}

func TestBackendUpdateRecordVersionNumberAndTimeRequiresMatchingVersionAndOwner(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	rec := lockstore.Record{Group: "g", ID: "id", OwnerName: "a", RecordVersionNumber: "v1", LeaseDurationInMs: 1000}
	require.NoError(t, backend.CreateNewLock(ctx, rec))

	err := backend.UpdateRecordVersionNumberAndTime(ctx, "g", "id", "wrong-version", "a", "v2", 2000)
	require.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)

	err = backend.UpdateRecordVersionNumberAndTime(ctx, "g", "id", "v1", "wrong-owner", "v2", 2000)
	require.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)

	err = backend.UpdateRecordVersionNumberAndTime(ctx, "g", "id", "v1", "a", "v2", 2000)
	require.NoError(t, err)

	got, err := backend.GetLockByGroupAndID(ctx, "g", "id")
	require.NoError(t, err)
	require.Equal(t, "v2", got.RecordVersionNumber)
	require.Equal(t, int64(2000), got.LastUpdatedTimeInMs)
}

func TestBackendUpdateLockWithNewLockContentAllowsCrossOwnerSteal(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	rec := lockstore.Record{Group: "g", ID: "id", OwnerName: "a", RecordVersionNumber: "v1", LeaseDurationInMs: 1000}
	require.NoError(t, backend.CreateNewLock(ctx, rec))

	stolen := lockstore.Record{Group: "g", ID: "id", OwnerName: "b", RecordVersionNumber: "v2", LeaseDurationInMs: 1000, LastUpdatedTimeInMs: 5000}
	err := backend.UpdateLockWithNewLockContent(ctx, "wrong-version", stolen)
	require.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)

	err = backend.UpdateLockWithNewLockContent(ctx, "v1", stolen)
	require.NoError(t, err)

	got, err := backend.GetLockByGroupAndID(ctx, "g", "id")
	require.NoError(t, err)
	require.Equal(t, "b", got.OwnerName)
	require.Equal(t, "v2", got.RecordVersionNumber)
}

func TestBackendDeleteLockRequiresMatchingVersionAndOwner(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()
	rec := lockstore.Record{Group: "g", ID: "id", OwnerName: "a", RecordVersionNumber: "v1", LeaseDurationInMs: 1000}
	require.NoError(t, backend.CreateNewLock(ctx, rec))

	err := backend.DeleteLock(ctx, "g", "id", "v1", "wrong-owner")
	require.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)

	err = backend.DeleteLock(ctx, "g", "id", "v1", "a")
	require.NoError(t, err)

	got, err := backend.GetLockByGroupAndID(ctx, "g", "id")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBackendDeletingAbsentLockFailsConditionalCheck(t *testing.T) {
	backend := newTestBackend(t)
	err := backend.DeleteLock(context.Background(), "g", "missing", "v1", "a")
	require.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)
}

func TestBackendGetLockByGroupAndIDRejectsCancelledContext(t *testing.T) {
	backend := newTestBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.GetLockByGroupAndID(ctx, "g", "id")
	require.ErrorIs(t, err, context.Canceled)
}
