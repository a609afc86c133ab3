package ports

import "context"

// UpdateAttributesInput names a user in the identity provider and the attributes to set.
type UpdateAttributesInput struct {
	UserPoolID string
	Username   string
	// Attributes are fully qualified names (including any custom prefix) to string values.
	Attributes map[string]string
}

// LinkIdentityInput asks the identity provider to treat a federated identity as
// the same user as an existing native user.
type LinkIdentityInput struct {
	UserPoolID string
	// DestinationUsername is the native user that keeps ownership.
	DestinationUsername string
	// SourceProvider is the federated provider name as configured in the pool (e.g. "Google").
	SourceProvider string
	// SourceSubject is the provider's user id (the part after "<provider>_" in the username).
	SourceSubject string
}

// IdentityProvider is the IdP-side API the core calls after a decision.
type IdentityProvider interface {
	UpdateUserAttributes(ctx context.Context, in UpdateAttributesInput) error
	LinkProviderIdentity(ctx context.Context, in LinkIdentityInput) error
}
