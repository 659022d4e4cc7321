// Package dynamo provides a DynamoDB-backed implementation of the storage.Store interface.
//
// Each group is one item keyed by "id". Members are a string set, ledgers and
// profiles are maps keyed by member id, so a member's entry can be written with a
// field-path update that never touches sibling entries. Join codes are resolved
// through a global secondary index on "code".
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mmynk/meshimatch/internal/models"
	"github.com/mmynk/meshimatch/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// DefaultCodeIndex is the GSI on the "code" attribute.
const DefaultCodeIndex = "code-index"

// API is the subset of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store implements storage.Store on one DynamoDB table.
type Store struct {
	api       API
	table     string
	codeIndex string
}

// New creates a Store. An empty codeIndex uses DefaultCodeIndex.
func New(api API, table, codeIndex string) *Store {
	if codeIndex == "" {
		codeIndex = DefaultCodeIndex
	}
	return &Store{api: api, table: table, codeIndex: codeIndex}
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// groupItem is the stored shape of a group.
type groupItem struct {
	ID        string                 `dynamodbav:"id"`
	Code      string                 `dynamodbav:"code"`
	Name      string                 `dynamodbav:"name"`
	Members   []string               `dynamodbav:"members,stringset,omitempty"`
	Likes     map[string][]string    `dynamodbav:"likes"`
	Profiles  map[string]profileItem `dynamodbav:"memberProfiles"`
	CreatedAt int64                  `dynamodbav:"createdAt"`
	CreatedBy string                 `dynamodbav:"createdBy"`
}

type profileItem struct {
	Name     string `dynamodbav:"name"`
	PhotoURI string `dynamodbav:"photoUri,omitempty"`
}

func toItem(g *models.Group) groupItem {
	item := groupItem{
		ID:        g.ID,
		Code:      g.Code,
		Name:      g.Name,
		Members:   g.Members,
		Likes:     make(map[string][]string, len(g.Likes)),
		Profiles:  make(map[string]profileItem, len(g.Profiles)),
		CreatedAt: g.CreatedAt,
		CreatedBy: g.CreatedBy,
	}
	// The maps must exist (not NULL) for later field-path updates
	for member, ids := range g.Likes {
		if ids == nil {
			ids = []string{}
		}
		item.Likes[member] = ids
	}
	for member, p := range g.Profiles {
		item.Profiles[member] = profileItem{Name: p.Name, PhotoURI: p.PhotoURI}
	}
	return item
}

func (item groupItem) toModel() *models.Group {
	g := &models.Group{
		ID:        item.ID,
		Code:      item.Code,
		Name:      item.Name,
		Members:   append([]string(nil), item.Members...),
		Likes:     make(map[string][]string, len(item.Likes)),
		CreatedAt: item.CreatedAt,
		CreatedBy: item.CreatedBy,
	}
	// String sets are unordered
	sort.Strings(g.Members)
	for member, ids := range item.Likes {
		if ids == nil {
			ids = []string{}
		}
		g.Likes[member] = ids
	}
	for member, p := range item.Profiles {
		if g.Profiles == nil {
			g.Profiles = make(map[string]models.MemberProfile, len(item.Profiles))
		}
		g.Profiles[member] = models.MemberProfile{Name: p.Name, PhotoURI: p.PhotoURI}
	}
	return g
}

func (s *Store) key(groupID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: groupID}}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// CreateGroup puts the group item unless the id or code is already taken.
// The code check reads the index first and is not atomic with the put.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	existing, err := s.groupIDByCode(ctx, group.Code)
	if err != nil {
		return err
	}
	if existing != "" {
		return storage.ErrCodeTaken
	}

	av, err := attributevalue.MarshalMap(toItem(group))
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("group %s already exists", group.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to put group in table '%s': %w", s.table, err)
	}
	return nil
}

// GetGroup reads a group with a consistent read. Returns nil, nil if not found.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(groupID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get group from table '%s': %w", s.table, err)
	}
	if out.Item == nil {
		return nil, nil // Group not found
	}

	var item groupItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal group: %w", err)
	}
	return item.toModel(), nil
}

// GetGroupByCode resolves the code through the index, then reads the item.
// Returns nil, nil if no group has that code.
func (s *Store) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	id, err := s.groupIDByCode(ctx, code)
	if err != nil || id == "" {
		return nil, err
	}
	return s.GetGroup(ctx, id)
}

func (s *Store) groupIDByCode(ctx context.Context, code string) (string, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(s.codeIndex),
		KeyConditionExpression:    aws.String("#code = :code"),
		ExpressionAttributeNames:  map[string]string{"#code": "code"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":code": &types.AttributeValueMemberS{Value: code}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("failed to query index '%s': %w", s.codeIndex, err)
	}
	if len(out.Items) == 0 {
		return "", nil
	}
	id, ok := out.Items[0]["id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("index '%s' returned an item without id", s.codeIndex)
	}
	return id.Value, nil
}

// ListGroupsForMember scans for groups whose member set contains memberID.
func (s *Store) ListGroupsForMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:        aws.String(s.table),
		FilterExpression: aws.String("contains(members, :m)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberS{Value: memberID},
		},
		ConsistentRead: aws.Bool(true),
	})

	var groups []*models.Group
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table '%s': %w", s.table, err)
		}
		var items []groupItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal groups: %w", err)
		}
		for _, item := range items {
			groups = append(groups, item.toModel())
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt != groups[j].CreatedAt {
			return groups[i].CreatedAt < groups[j].CreatedAt
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

// UpdateGroupFields applies patch with field-path update expressions. A patch that
// both adds and removes runs as two conditional updates, additions first.
func (s *Store) UpdateGroupFields(ctx context.Context, groupID string, patch models.GroupPatch) error {
	updates, err := buildUpdates(patch)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		// Still report missing groups for empty patches
		g, err := s.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if g == nil {
			return storage.ErrGroupNotFound
		}
		return nil
	}

	for _, u := range updates {
		_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.table),
			Key:                       s.key(groupID),
			UpdateExpression:          aws.String(u.Expression),
			ConditionExpression:       aws.String("attribute_exists(id)"),
			ExpressionAttributeNames:  u.Names,
			ExpressionAttributeValues: u.Values,
		})
		if isConditionFailed(err) {
			return storage.ErrGroupNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update group in table '%s': %w", s.table, err)
		}
	}
	return nil
}

// DeleteGroup removes the group item.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(groupID),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if isConditionFailed(err) {
		return storage.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete group from table '%s': %w", s.table, err)
	}
	return nil
}
