// Package dynamodb implements pkg/lockstore.Backend against Amazon DynamoDB
// (or a DynamoDB-compatible endpoint such as DynamoDB Local), using the
// five conditional expressions the Store Adapter specification describes.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/condlock/condlock/pkg/lockstore"
)

// item is the DynamoDB wire shape of a lockstore.Record: the composite key
// plus the five reserved attributes, with AdditionalAttributes flattened
// into a nested map so callers can use expression attributes on it later.
type item struct {
	LockID               string         `dynamodbav:"lockId"`
	LockGroup            string         `dynamodbav:"lockGroup"`
	OwnerName            string         `dynamodbav:"ownerName"`
	RecordVersionNumber  string         `dynamodbav:"recordVersionNumber"`
	LastUpdatedTimeInMs  int64          `dynamodbav:"lastUpdatedTimeInMs"`
	LeaseDurationInMs    int64          `dynamodbav:"leaseDurationInMs"`
	AdditionalAttributes map[string]any `dynamodbav:"additionalAttributes,omitempty"`
	TTL                  int64          `dynamodbav:"ttl,omitempty"`
}

// NewClientFromConfig builds a *dynamodb.Client from discrete parameters,
// overriding the endpoint for local testing (DynamoDB Local, LocalStack).
// Leave endpoint empty to use the real AWS endpoint for region.
func NewClientFromConfig(ctx context.Context, endpoint, region, accessKeyID, secretAccessKey string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})

	return client, nil
}

// Backend implements lockstore.Backend against a DynamoDB table described
// by descriptor.
type Backend struct {
	client     *dynamodb.Client
	descriptor *lockstore.TableDescriptor
}

// New creates a DynamoDB-backed Backend. descriptor must not be nil; use
// lockstore.DefaultTableDescriptor() for the spec-mandated defaults.
func New(client *dynamodb.Client, descriptor *lockstore.TableDescriptor) *Backend {
	return &Backend{client: client, descriptor: descriptor}
}

func (b *Backend) key(group, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		b.descriptor.PartitionKey: &types.AttributeValueMemberS{Value: id},
		b.descriptor.SortKey:      &types.AttributeValueMemberS{Value: group},
	}
}

func (b *Backend) toItem(rec lockstore.Record) item {
	it := item{
		LockID:               rec.ID,
		LockGroup:            rec.Group,
		OwnerName:            rec.OwnerName,
		RecordVersionNumber:  rec.RecordVersionNumber,
		LastUpdatedTimeInMs:  rec.LastUpdatedTimeInMs,
		LeaseDurationInMs:    rec.LeaseDurationInMs,
		AdditionalAttributes: rec.AdditionalAttributes,
	}
	if b.descriptor.TTLEnabled() {
		it.TTL = b.descriptor.TTLValue(rec.LastUpdatedTimeInMs)
	}
	return it
}

// GetLockByGroupAndID performs a strongly-consistent GetItem.
func (b *Backend) GetLockByGroupAndID(ctx context.Context, group, id string) (*lockstore.Record, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.descriptor.TableName),
		Key:            b.key(group, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("dynamodb: unmarshal item: %w", err)
	}

	return &lockstore.Record{
		Group:                it.LockGroup,
		ID:                   it.LockID,
		OwnerName:            it.OwnerName,
		RecordVersionNumber:  it.RecordVersionNumber,
		LastUpdatedTimeInMs:  it.LastUpdatedTimeInMs,
		LeaseDurationInMs:    it.LeaseDurationInMs,
		AdditionalAttributes: it.AdditionalAttributes,
	}, nil
}

// CreateNewLock issues a conditional PutItem gated on
// attribute_not_exists(partitionKey) AND attribute_not_exists(sortKey).
func (b *Backend) CreateNewLock(ctx context.Context, rec lockstore.Record) error {
	av, err := attributevalue.MarshalMap(b.toItem(rec))
	if err != nil {
		return fmt.Errorf("dynamodb: marshal item: %w", err)
	}

	cond := expression.And(
		expression.AttributeNotExists(expression.Name(b.descriptor.PartitionKey)),
		expression.AttributeNotExists(expression.Name(b.descriptor.SortKey)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build condition expression: %w", err)
	}

	_, err = b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(b.descriptor.TableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return mapConditionalError(err)
}

// UpdateRecordVersionNumberAndTime issues a conditional UpdateItem (renewal)
// gated on the prior version and owner.
func (b *Backend) UpdateRecordVersionNumberAndTime(ctx context.Context, group, id, oldVersion, owner, newVersion string, whenMs int64) error {
	cond := expression.And(
		expression.AttributeExists(expression.Name(b.descriptor.PartitionKey)),
		expression.Name("recordVersionNumber").Equal(expression.Value(oldVersion)),
		expression.Name("ownerName").Equal(expression.Value(owner)),
	)
	update := expression.Set(expression.Name("recordVersionNumber"), expression.Value(newVersion)).
		Set(expression.Name("lastUpdatedTimeInMs"), expression.Value(whenMs))

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build update expression: %w", err)
	}

	_, err = b.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(b.descriptor.TableName),
		Key:                       b.key(group, id),
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return mapConditionalError(err)
}

// UpdateLockWithNewLockContent issues a conditional PutItem (steal) gated
// only on the prior version — deliberately cross-owner.
func (b *Backend) UpdateLockWithNewLockContent(ctx context.Context, existingVersion string, rec lockstore.Record) error {
	av, err := attributevalue.MarshalMap(b.toItem(rec))
	if err != nil {
		return fmt.Errorf("dynamodb: marshal item: %w", err)
	}

	cond := expression.And(
		expression.AttributeExists(expression.Name(b.descriptor.PartitionKey)),
		expression.Name("recordVersionNumber").Equal(expression.Value(existingVersion)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build condition expression: %w", err)
	}

	_, err = b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(b.descriptor.TableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return mapConditionalError(err)
}

// DeleteLock issues a conditional DeleteItem gated on version and owner.
func (b *Backend) DeleteLock(ctx context.Context, group, id, version, owner string) error {
	cond := expression.And(
		expression.AttributeExists(expression.Name(b.descriptor.PartitionKey)),
		expression.Name("recordVersionNumber").Equal(expression.Value(version)),
		expression.Name("ownerName").Equal(expression.Value(owner)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dynamodb: build condition expression: %w", err)
	}

	_, err = b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(b.descriptor.TableName),
		Key:                       b.key(group, id),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return mapConditionalError(err)
}

func mapConditionalError(err error) error {
	if err == nil {
		return nil
	}
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return lockstore.ErrConditionalCheckFailed
	}
	return fmt.Errorf("dynamodb: %w", err)
}
