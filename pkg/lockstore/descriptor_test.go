package lockstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condlock/condlock/pkg/lock"
)

func TestNewTableDescriptorDefaults(t *testing.T) {
	d, err := NewTableDescriptor("", "", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTableName, d.TableName)
	assert.Equal(t, DefaultPartitionKey, d.PartitionKey)
	assert.Equal(t, DefaultSortKey, d.SortKey)
	assert.Equal(t, int64(DefaultTTLInMs), d.TTLInMs)
	assert.False(t, d.TTLEnabled())
}

func TestNewTableDescriptorRejectsReservedNames(t *testing.T) {
	cases := []struct {
		name, pk, sk, ttl string
	}{
		{"partition key", AttrRecordVersionNumber, "lockGroup", ""},
		{"sort key", "lockId", AttrOwnerName, ""},
		{"ttl key", "lockId", "lockGroup", AttrLeaseDurationInMs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTableDescriptor("", tc.pk, tc.sk, tc.ttl, 0)
			require.Error(t, err)
			var lockErr *lock.Error
			require.True(t, errors.As(err, &lockErr))
			assert.Equal(t, lock.ErrTableConfigValidation, lockErr.Code)
		})
	}
}

func TestNewTableDescriptorRejectsSameKeys(t *testing.T) {
	_, err := NewTableDescriptor("", "k", "k", "", 0)
	require.Error(t, err)
	var lockErr *lock.Error
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, lock.ErrTableConfigValidation, lockErr.Code)
}

func TestTTLValue(t *testing.T) {
	d, err := NewTableDescriptor("", "", "", "ttl", 1000) // 1 second
	require.NoError(t, err)

	now := int64(10_000) // 10s since epoch, in ms
	got := d.TTLValue(now)
	assert.Equal(t, int64(11), got) // (10000+1000)/1000 = 11s
}
