package dynamo

// Package dynamo implements ports.AccountStore on a single DynamoDB table.
//
// Table layout (partition key "id", string):
//   - account items: id=<account id>, email, name, primaryAuthMethod,
//     linkedAuthMethods (string set), createdAt, updatedAt
//   - email claim items: id="email#<normalized email>", accountId
//
// The claim item makes email uniqueness enforceable inside a transaction.
// A global secondary index on "email" (claim items carry no email attribute)
// serves lookups by address.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

const (
	// DefaultEmailIndex is the GSI name used when none is configured.
	DefaultEmailIndex = "byEmail"

	claimPrefix = "email#"
)

// API is the subset of *dynamodb.Client used by Store.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(
		ctx context.Context,
		in *dynamodb.TransactWriteItemsInput,
		optFns ...func(*dynamodb.Options),
	) (*dynamodb.TransactWriteItemsOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Client     API    // Required
	Table      string // Required
	EmailIndex string // Optional; defaults to DefaultEmailIndex
	Logger     *slog.Logger
}

// Store is the DynamoDB implementation of ports.AccountStore.
type Store struct {
	client     API
	table      string
	emailIndex string
	logger     *slog.Logger
}

// NewStore creates a Store. Panics if Client or Table is missing.
func NewStore(opts StoreOptions) *Store {
	if opts.Client == nil {
		panic("dynamo: Client is required")
	}
	if opts.Table == "" {
		panic("dynamo: Table is required")
	}
	idx := opts.EmailIndex
	if idx == "" {
		idx = DefaultEmailIndex
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:     opts.Client,
		table:      opts.Table,
		emailIndex: idx,
		logger:     logger.With("component", "dynamo_store", "table", opts.Table),
	}
}

// accountItem is the stored shape of an account.
type accountItem struct {
	ID                string    `dynamodbav:"id"`
	Email             string    `dynamodbav:"email"`
	Name              string    `dynamodbav:"name"`
	PrimaryAuthMethod string    `dynamodbav:"primaryAuthMethod"`
	LinkedAuthMethods []string  `dynamodbav:"linkedAuthMethods,stringset"`
	CreatedAt         time.Time `dynamodbav:"createdAt"`
	UpdatedAt         time.Time `dynamodbav:"updatedAt"`
}

type claimItem struct {
	ID        string `dynamodbav:"id"`
	AccountID string `dynamodbav:"accountId"`
}

func itemFrom(acct account.Account) accountItem {
	return accountItem{
		ID:                acct.ID,
		Email:             account.NormalizeEmail(acct.Email),
		Name:              acct.Name,
		PrimaryAuthMethod: string(acct.PrimaryAuthMethod),
		LinkedAuthMethods: acct.LinkedAuthMethods.Union(acct.PrimaryAuthMethod).Strings(),
		CreatedAt:         acct.CreatedAt.UTC(),
		UpdatedAt:         acct.UpdatedAt.UTC(),
	}
}

func (it accountItem) toAccount() *account.Account {
	return &account.Account{
		ID:                it.ID,
		Email:             it.Email,
		Name:              it.Name,
		PrimaryAuthMethod: account.Provider(it.PrimaryAuthMethod),
		LinkedAuthMethods: account.LinkedMethodsFromStrings(it.LinkedAuthMethods),
		CreatedAt:         it.CreatedAt.UTC(),
		UpdatedAt:         it.UpdatedAt.UTC(),
	}
}

func claimKey(email string) string { return claimPrefix + email }

func keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

// FindByEmail queries the email index and falls back to a consistent read
// through the claim item, since index reads may trail a fresh write.
func (s *Store) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return nil, ports.ErrAccountNotFound
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.emailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, mapErr(err, "query account by email")
	}
	if len(out.Items) > 0 {
		return decodeAccount(out.Items[0])
	}

	claim, err := s.getItem(ctx, claimKey(email), "get email claim")
	if err != nil {
		return nil, err
	}
	var c claimItem
	if err := attributevalue.UnmarshalMap(claim, &c); err != nil {
		return nil, fmt.Errorf("decode email claim: %w", err)
	}
	if c.AccountID == "" {
		return nil, ports.ErrAccountNotFound
	}
	return s.GetByID(ctx, c.AccountID)
}

// GetByID reads an account item with a consistent read.
func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if id == "" || strings.HasPrefix(id, claimPrefix) {
		return nil, ports.ErrAccountNotFound
	}
	item, err := s.getItem(ctx, id, "get account")
	if err != nil {
		return nil, err
	}
	return decodeAccount(item)
}

func (s *Store) getItem(ctx context.Context, id, op string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapErr(err, op)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrAccountNotFound
	}
	return out.Item, nil
}

// CreateIfAbsent writes the account and its email claim in one transaction.
// Either item already existing cancels the transaction with ErrAccountExists.
func (s *Store) CreateIfAbsent(ctx context.Context, acct account.Account) error {
	it := itemFrom(acct)
	if it.ID == "" || it.Email == "" {
		return fmt.Errorf("create account: id and email are required")
	}
	accountAV, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	claimAV, err := attributevalue.MarshalMap(claimItem{ID: claimKey(it.Email), AccountID: it.ID})
	if err != nil {
		return fmt.Errorf("encode email claim: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.table),
				Item:                accountAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.table),
				Item:                claimAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
		},
	})
	if err == nil {
		return nil
	}
	if conditionFailed(err) {
		s.logger.DebugContext(ctx, "account create lost to existing record", "account_id", it.ID)
		return ports.ErrAccountExists
	}
	return mapErr(err, "create account")
}

// AddLinkedMethod adds p to the string set. ADD on a set is idempotent.
func (s *Store) AddLinkedMethod(
	ctx context.Context,
	id string,
	p account.Provider,
	at time.Time,
) (*account.Account, error) {
	if id == "" || strings.HasPrefix(id, claimPrefix) {
		return nil, ports.ErrAccountNotFound
	}
	updatedAt, err := attributevalue.Marshal(at.UTC())
	if err != nil {
		return nil, fmt.Errorf("encode updatedAt: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 keyOf(id),
		UpdateExpression:    aws.String("ADD linkedAuthMethods :m SET updatedAt = :u"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberSS{Value: []string{string(p)}},
			":u": updatedAt,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if conditionFailed(err) {
			return nil, ports.ErrAccountNotFound
		}
		return nil, mapErr(err, "add linked method")
	}
	return decodeAccount(out.Attributes)
}

func decodeAccount(av map[string]types.AttributeValue) (*account.Account, error) {
	var it accountItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return it.toAccount(), nil
}

// conditionFailed reports whether err is a failed condition check, either
// directly or as a reason inside a cancelled transaction.
func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
