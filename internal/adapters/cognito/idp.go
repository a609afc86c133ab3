package cognito

// Package cognito adapts Amazon Cognito user pools to the account-linking core:
// the admin API behind ports.IdentityProvider and the Lambda trigger envelope.

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

const (
	// DefaultNativeProviderName is the provider name Cognito uses for its own users.
	DefaultNativeProviderName = "Cognito"
	// SubjectAttribute identifies a federated user by the provider's subject.
	SubjectAttribute = "Cognito_Subject"
)

// AdminAPI is the subset of the Cognito user pool admin API used here.
type AdminAPI interface {
	AdminUpdateUserAttributes(
		ctx context.Context,
		in *cip.AdminUpdateUserAttributesInput,
		optFns ...func(*cip.Options),
	) (*cip.AdminUpdateUserAttributesOutput, error)
	AdminLinkProviderForUser(
		ctx context.Context,
		in *cip.AdminLinkProviderForUserInput,
		optFns ...func(*cip.Options),
	) (*cip.AdminLinkProviderForUserOutput, error)
}

// IdentityProviderOptions configures IdentityProvider.
type IdentityProviderOptions struct {
	Client AdminAPI // Required
	// UserPoolID is used when a request does not carry one.
	UserPoolID string
	// NativeProviderName defaults to DefaultNativeProviderName.
	NativeProviderName string
	Logger             *slog.Logger
}

// IdentityProvider implements ports.IdentityProvider with the Cognito admin API.
type IdentityProvider struct {
	client     AdminAPI
	userPoolID string
	native     string
	logger     *slog.Logger
}

var _ ports.IdentityProvider = (*IdentityProvider)(nil)

// NewIdentityProvider creates an IdentityProvider. Panics if Client is nil.
func NewIdentityProvider(opts IdentityProviderOptions) *IdentityProvider {
	if opts.Client == nil {
		panic("cognito: Client is required")
	}
	native := opts.NativeProviderName
	if native == "" {
		native = DefaultNativeProviderName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityProvider{
		client:     opts.Client,
		userPoolID: opts.UserPoolID,
		native:     native,
		logger:     logger.With("component", "cognito_idp"),
	}
}

func (p *IdentityProvider) pool(id string) string {
	if id != "" {
		return id
	}
	return p.userPoolID
}

// UpdateUserAttributes writes attributes onto the user. Names are sent in
// sorted order so requests are reproducible.
func (p *IdentityProvider) UpdateUserAttributes(ctx context.Context, in ports.UpdateAttributesInput) error {
	if len(in.Attributes) == 0 {
		return nil
	}
	pool := p.pool(in.UserPoolID)
	if pool == "" || in.Username == "" {
		return apperrors.Validation("user pool id and username are required")
	}

	attrs := make([]types.AttributeType, 0, len(in.Attributes))
	for _, name := range slices.Sorted(maps.Keys(in.Attributes)) {
		attrs = append(attrs, types.AttributeType{Name: aws.String(name), Value: aws.String(in.Attributes[name])})
	}

	_, err := p.client.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(pool),
		Username:       aws.String(in.Username),
		UserAttributes: attrs,
	})
	if err != nil {
		return mapErr(err, "update user attributes")
	}
	p.logger.DebugContext(ctx, "updated user attributes", "username", in.Username, "count", len(attrs))
	return nil
}

// LinkProviderIdentity merges a federated identity into an existing native user.
func (p *IdentityProvider) LinkProviderIdentity(ctx context.Context, in ports.LinkIdentityInput) error {
	pool := p.pool(in.UserPoolID)
	if pool == "" || in.DestinationUsername == "" || in.SourceProvider == "" || in.SourceSubject == "" {
		return apperrors.Validation("user pool id, destination user and source identity are required")
	}

	_, err := p.client.AdminLinkProviderForUser(ctx, &cip.AdminLinkProviderForUserInput{
		UserPoolId: aws.String(pool),
		DestinationUser: &types.ProviderUserIdentifierType{
			ProviderName:           aws.String(p.native),
			ProviderAttributeValue: aws.String(in.DestinationUsername),
		},
		SourceUser: &types.ProviderUserIdentifierType{
			ProviderName:           aws.String(in.SourceProvider),
			ProviderAttributeName:  aws.String(SubjectAttribute),
			ProviderAttributeValue: aws.String(in.SourceSubject),
		},
	})
	if err != nil {
		return mapErr(err, "link provider for user")
	}
	p.logger.InfoContext(ctx, "linked federated identity",
		"destination", in.DestinationUsername, "source_provider", in.SourceProvider)
	return nil
}

func mapErr(err error, op string) error {
	var notFound *types.UserNotFoundException
	if errors.As(err, &notFound) {
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, op)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "LimitExceededException":
			return apperrors.Transport(err, op)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, op)
	}
	return apperrors.Transport(err, op)
}
