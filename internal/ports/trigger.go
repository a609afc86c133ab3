package ports

import (
	"strings"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/domain/linking"
)

// Standard attribute names read from trigger events.
const (
	AttrEmail           = "email"
	AttrSub             = "sub"
	AttrName            = "name"
	AttrGivenName       = "given_name"
	AttrCognitoUsername = "cognito:username"
	AttrUserStatus      = "cognito:user_status"
)

const (
	// ExternalProviderSuffix marks trigger sources raised for federated sign-ins.
	ExternalProviderSuffix = "_ExternalProvider"
	// UserStatusExternalProvider is the user status Cognito gives federated users.
	UserStatusExternalProvider = "EXTERNAL_PROVIDER"

	postConfirmationPrefix = "PostConfirmation_"
)

// TriggerEvent is the identity provider's view of the user at a lifecycle hook.
type TriggerEvent struct {
	// Source is the raw trigger source, e.g. "PreSignUp_ExternalProvider".
	Source     string
	UserPoolID string
	// Username is provider-qualified for federated users: "<provider>_<providerUserId>".
	Username       string
	Attributes     map[string]string
	ClientMetadata map[string]string
}

// IsExternalProvider reports whether the event was raised for a federated identity.
// Post-confirmation sources carry no federated suffix, so the user status and a
// social "<provider>_" username prefix are checked as well.
func (e TriggerEvent) IsExternalProvider() bool {
	switch {
	case strings.HasSuffix(e.Source, ExternalProviderSuffix):
		return true
	case strings.EqualFold(e.Attributes[AttrUserStatus], UserStatusExternalProvider):
		return true
	case strings.HasPrefix(e.Source, postConfirmationPrefix):
		name, _, ok := e.ProviderSubject()
		if !ok {
			return false
		}
		p, err := account.ParseProvider(name)
		return err == nil && p.IsSocial()
	default:
		return false
	}
}

// Email returns the normalized email attribute.
func (e TriggerEvent) Email() string {
	return account.NormalizeEmail(e.Attributes[AttrEmail])
}

// Subject returns the stable provider-issued id, falling back to the username.
func (e TriggerEvent) Subject() string {
	if sub := strings.TrimSpace(e.Attributes[AttrSub]); sub != "" {
		return sub
	}
	return e.Username
}

// DisplayName returns name, then given_name, then the local part of the email.
func (e TriggerEvent) DisplayName() string {
	for _, k := range []string{AttrName, AttrGivenName} {
		if v := strings.TrimSpace(e.Attributes[k]); v != "" {
			return v
		}
	}
	local, _, _ := strings.Cut(e.Email(), "@")
	return local
}

// ProviderSubject splits a federated username into provider name and provider user id.
// ok is false for native usernames.
func (e TriggerEvent) ProviderSubject() (provider, subject string, ok bool) {
	provider, subject, ok = strings.Cut(e.Username, "_")
	if !ok || provider == "" || subject == "" {
		return "", "", false
	}
	return provider, subject, true
}

// TriggerResult is what an entry point hands back to the identity provider.
type TriggerResult struct {
	Decision linking.Decision
	Markers  account.SessionMarkers
	// Attributes are the markers rendered with the configured attribute prefix.
	Attributes map[string]string
}
