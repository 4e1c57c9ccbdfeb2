package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"scenario-writing-lab/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// OwnerIndex is the global secondary index keyed on ownerId.
	OwnerIndex = "ownerId-index"

	maxUpdateAttempts = 10
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type documentItem struct {
	ID         string             `dynamodbav:"id"`
	OwnerID    string             `dynamodbav:"ownerId"`
	Title      string             `dynamodbav:"title"`
	AuthorName string             `dynamodbav:"authorName"`
	Synopsis   string             `dynamodbav:"synopsis"`
	Content    string             `dynamodbav:"content"`
	Settings   Settings           `dynamodbav:"settings"`
	Characters []CharacterProfile `dynamodbav:"characters"`
	CreatedAt  time.Time          `dynamodbav:"createdAt"`
	UpdatedAt  time.Time          `dynamodbav:"updatedAt"`
	Version    int                `dynamodbav:"version"`
}

func (i documentItem) toDocument() ScriptDocument {
	return ScriptDocument{
		ID:         i.ID,
		OwnerID:    i.OwnerID,
		Title:      i.Title,
		AuthorName: i.AuthorName,
		Synopsis:   i.Synopsis,
		Content:    i.Content,
		Settings:   i.Settings,
		Characters: cloneCharacters(i.Characters),
		CreatedAt:  i.CreatedAt.UTC(),
		UpdatedAt:  i.UpdatedAt.UTC(),
		Version:    i.Version,
	}
}

func marshalDocument(doc ScriptDocument) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(documentItem{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Title:      doc.Title,
		AuthorName: doc.AuthorName,
		Synopsis:   doc.Synopsis,
		Content:    doc.Content,
		Settings:   doc.Settings,
		Characters: cloneCharacters(doc.Characters),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Version:    doc.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	return item, nil
}

// DynamoStore persists documents in a DynamoDB table keyed on id. Writes are
// conditional puts: creation requires the id to be absent and updates require
// the stored version to be the one that was read.
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func (s *DynamoStore) Backend() string {
	return config.BackendDynamoDB
}

// Ping checks that the table exists and is reachable.
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	return nil
}

func (s *DynamoStore) ListByOwner(ctx context.Context, ownerID string) ([]ScriptDocument, error) {
	docs := make([]ScriptDocument, 0)
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			IndexName:              aws.String(OwnerIndex),
			KeyConditionExpression: aws.String("ownerId = :owner"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: ownerID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query documents of %s: %w", ownerID, err)
		}

		var items []documentItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
		for _, item := range items {
			docs = append(docs, item.toDocument())
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sortByUpdatedDesc(docs)
	return docs, nil
}

func (s *DynamoStore) GetByID(ctx context.Context, id string) (*ScriptDocument, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	doc := item.toDocument()
	return &doc, nil
}

func (s *DynamoStore) Create(ctx context.Context, ownerID string, input CreateInput) (*ScriptDocument, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		doc := NewDocument(NewID(), ownerID, input, s.now())
		item, err := marshalDocument(doc)
		if err != nil {
			return nil, err
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		})
		if err == nil {
			return &doc, nil
		}
		if !isConditionFailure(err) {
			return nil, fmt.Errorf("put document %s: %w", doc.ID, err)
		}
	}
	return nil, errors.New("could not allocate a document id")
}

// Update re-reads and retries when another writer won the race, unless the
// caller pinned an expected version, in which case losing is a conflict.
func (s *DynamoStore) Update(ctx context.Context, id string, patch Patch) (*ScriptDocument, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
			return nil, ErrVersionConflict
		}

		next := patch.Apply(*current, s.now())
		item, err := marshalDocument(next)
		if err != nil {
			return nil, err
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.table),
			Item:                item,
			ConditionExpression: aws.String("version = :current"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":current": &types.AttributeValueMemberN{Value: strconv.Itoa(current.Version)},
			},
		})
		if err == nil {
			return &next, nil
		}
		if !isConditionFailure(err) {
			return nil, fmt.Errorf("put document %s: %w", id, err)
		}
		if patch.ExpectedVersion != nil {
			return nil, ErrVersionConflict
		}
	}
	return nil, ErrVersionConflict
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
