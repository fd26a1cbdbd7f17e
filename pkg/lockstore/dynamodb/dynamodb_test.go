package dynamodb

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condlock/condlock/pkg/lockstore"
)

func TestKeyUsesDescriptorAttributeNames(t *testing.T) {
	b := &Backend{descriptor: lockstore.DefaultTableDescriptor()}
	k := b.key("g", "i")

	pk, ok := k[lockstore.DefaultPartitionKey].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "i", pk.Value)

	sk, ok := k[lockstore.DefaultSortKey].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "g", sk.Value)
}

func TestToItemSetsTTLOnlyWhenEnabled(t *testing.T) {
	rec := lockstore.Record{Group: "g", ID: "i", LastUpdatedTimeInMs: 10_000, LeaseDurationInMs: 1000}

	withoutTTL := &Backend{descriptor: lockstore.DefaultTableDescriptor()}
	assert.Zero(t, withoutTTL.toItem(rec).TTL)

	descWithTTL, err := lockstore.NewTableDescriptor("", "", "", "ttl", 1000)
	require.NoError(t, err)
	withTTL := &Backend{descriptor: descWithTTL}
	assert.Equal(t, descWithTTL.TTLValue(rec.LastUpdatedTimeInMs), withTTL.toItem(rec).TTL)
}

func TestItemRoundTripsThroughAttributeValue(t *testing.T) {
	it := item{
		LockID:              "order-1",
		LockGroup:           "orders",
		OwnerName:           "owner-1",
		RecordVersionNumber: "v1",
		LastUpdatedTimeInMs: 123,
		LeaseDurationInMs:   20000,
	}

	av, err := attributevalue.MarshalMap(it)
	require.NoError(t, err)

	var got item
	require.NoError(t, attributevalue.UnmarshalMap(av, &got))
	assert.Equal(t, it, got)
}

func TestMapConditionalErrorTranslatesConditionalCheckFailed(t *testing.T) {
	err := mapConditionalError(&types.ConditionalCheckFailedException{})
	assert.ErrorIs(t, err, lockstore.ErrConditionalCheckFailed)
}

func TestMapConditionalErrorPassesThroughOtherErrors(t *testing.T) {
	wrapped := errors.New("throttled")
	err := mapConditionalError(wrapped)
	require.Error(t, err)
	assert.NotErrorIs(t, err, lockstore.ErrConditionalCheckFailed)
}

func TestMapConditionalErrorNilIsNil(t *testing.T) {
	assert.NoError(t, mapConditionalError(nil))
}
