package account

import (
	"fmt"
	"slices"
	"strings"
)

// Provider is the canonical tag for how a user authenticated.
type Provider string

const (
	ProviderEmail    Provider = "Email"
	ProviderGoogle   Provider = "Google"
	ProviderFacebook Provider = "Facebook"
	// ProviderOAuth covers any federated provider that is not Google or Facebook.
	ProviderOAuth Provider = "OAuth"
)

// Valid reports whether p is one of the known tags.
func (p Provider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderGoogle, ProviderFacebook, ProviderOAuth:
		return true
	default:
		return false
	}
}

// IsSocial reports whether p is one of the providers eligible for automatic linking.
func (p Provider) IsSocial() bool {
	return p == ProviderGoogle || p == ProviderFacebook
}

func (p Provider) String() string { return string(p) }

// ParseProvider converts a case-insensitive name into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email", "password", "cognito":
		return ProviderEmail, nil
	case "google":
		return ProviderGoogle, nil
	case "facebook":
		return ProviderFacebook, nil
	case "oauth":
		return ProviderOAuth, nil
	default:
		return "", fmt.Errorf("unknown auth provider %q", s)
	}
}

// LinkedMethods is a set of providers kept sorted and free of duplicates.
type LinkedMethods []Provider

// NewLinkedMethods builds a set from ps, dropping empty tags and duplicates.
func NewLinkedMethods(ps ...Provider) LinkedMethods {
	out := make(LinkedMethods, 0, len(ps))
	for _, p := range ps {
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Contains reports whether p is a member.
func (m LinkedMethods) Contains(p Provider) bool {
	return slices.Contains(m, p)
}

// Union returns a new set holding every member of m plus p.
// The receiver is never modified and re-adding a member yields an equal set.
func (m LinkedMethods) Union(p Provider) LinkedMethods {
	merged := make([]Provider, 0, len(m)+1)
	merged = append(merged, m...)
	merged = append(merged, p)
	return NewLinkedMethods(merged...)
}

// Strings returns the members as plain strings, in sorted order.
func (m LinkedMethods) Strings() []string {
	out := make([]string, len(m))
	for i, p := range m {
		out[i] = string(p)
	}
	return out
}

// LinkedMethodsFromStrings is the inverse of Strings.
func LinkedMethodsFromStrings(ss []string) LinkedMethods {
	ps := make([]Provider, len(ss))
	for i, s := range ss {
		ps[i] = Provider(s)
	}
	return NewLinkedMethods(ps...)
}
