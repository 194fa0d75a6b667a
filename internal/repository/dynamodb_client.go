package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"weather-agent/internal/domain"
)

const (
	skState     = "STATE#"
	ttlDuration = 7 * 24 * time.Hour // sessions idle for a week are dropped
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table holding one state item per session.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// ttlValue returns the Unix expiry for an item written now.
func ttlValue(now time.Time) int64 {
	return now.Add(ttlDuration).Unix()
}

func stateKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// GetSession reads a session snapshot. Unknown sessions return domain.ErrSessionNotFound.
func (c *Client) GetSession(ctx context.Context, sessionID string) (domain.SessionState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.SessionState{}, errors.New("repository: GetSession: session id is required")
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            stateKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("repository: GetSession get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.SessionState{}, fmt.Errorf("repository: GetSession %q: %w", sessionID, domain.ErrSessionNotFound)
	}

	state, err := itemToState(out.Item)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("repository: GetSession decode: %w", err)
	}
	state.SessionID = sessionID
	return state, nil
}

// SaveSession writes the snapshot if the stored version still equals
// state.Version (or no item exists when Version is zero) and bumps the version.
func (c *Client) SaveSession(ctx context.Context, state domain.SessionState) error {
	if strings.TrimSpace(state.SessionID) == "" {
		return errors.New("repository: SaveSession: session id is required")
	}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      stateItem(state, time.Now().UTC()),
	}
	if state.Version == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)")
	} else {
		in.ConditionExpression = aws.String("#v = :v")
		in.ExpressionAttributeNames = map[string]string{"#v": "version"}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(state.Version, 10)},
		}
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var conditionErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return fmt.Errorf("repository: SaveSession %q: %w", state.SessionID, domain.ErrVersionConflict)
		}
		return fmt.Errorf("repository: SaveSession: %w", err)
	}
	return nil
}

func stateItem(state domain.SessionState, now time.Time) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: sessionPK(state.SessionID)},
		"SK":           &types.AttributeValueMemberS{Value: skState},
		"sessionId":    &types.AttributeValueMemberS{Value: state.SessionID},
		"location":     &types.AttributeValueMemberS{Value: state.Result.Location},
		"forecast":     &types.AttributeValueMemberS{Value: state.Result.Forecast},
		"version":      &types.AttributeValueMemberN{Value: strconv.FormatInt(state.Version+1, 10)},
		"lastActivity": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ttl":          &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(now), 10)},
	}
	// DynamoDB rejects empty sets, so an empty ledger is stored as a missing attribute.
	if len(state.Handled) > 0 {
		item["handled"] = &types.AttributeValueMemberSS{Value: append([]string(nil), state.Handled...)}
	}
	return item
}

// itemToState converts a DynamoDB attribute map to a SessionState.
func itemToState(item map[string]types.AttributeValue) (domain.SessionState, error) {
	version, err := int64Attr(item, "version")
	if err != nil {
		return domain.SessionState{}, err
	}
	handled, err := stringSetAttr(item, "handled")
	if err != nil {
		return domain.SessionState{}, err
	}
	location, _ := strAttr(item, "location") // allow empty
	forecast, _ := strAttr(item, "forecast") // allow empty

	return domain.SessionState{
		Handled: handled,
		Result:  domain.Result{Location: location, Forecast: forecast},
		Version: version,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

// stringSetAttr reads a string set; a missing attribute is an empty set.
func stringSetAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, nil
	}
	ss, ok := v.(*types.AttributeValueMemberSS)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a string set", key)
	}
	return append([]string(nil), ss.Value...), nil
}
