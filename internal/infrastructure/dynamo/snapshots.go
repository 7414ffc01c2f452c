package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-wa-onboarding/internal/domain"
)

// snapshotRetention bounds how long a last-known snapshot is kept for a
// tenant that stopped fetching.
const snapshotRetention = 30 * 24 * time.Hour

// snapshotItem is the stored form of a snapshot.
type snapshotItem struct {
	domain.Snapshot
	ExpiresAt int64 `dynamodbav:"expires_at"`
}

// SnapshotRepo stores the last fetched onboarding snapshot per tenant.
type SnapshotRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSnapshotRepo(client *dynamodb.Client, tableName string) *SnapshotRepo {
	return &SnapshotRepo{client: client, tableName: tableName}
}

func (r *SnapshotRepo) Put(ctx context.Context, s *domain.Snapshot) error {
	item, err := toItem(s)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SnapshotRepo) Get(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrTenantID, tenantID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("snapshot for %s: %w", tenantID, domain.ErrNotFound)
	}
	return fromItem(out.Item)
}

func toItem(s *domain.Snapshot) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(snapshotItem{
		Snapshot:  *s,
		ExpiresAt: s.FetchedAt.Add(snapshotRetention).Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (*domain.Snapshot, error) {
	var si snapshotItem
	if err := attributevalue.UnmarshalMap(item, &si); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &si.Snapshot, nil
}
