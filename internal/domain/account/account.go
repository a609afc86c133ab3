package account

// Package account contains the persistent account record shared by every
// authentication method a person uses, plus the session markers projected
// from it. It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Account is the canonical record for one real person.
// ID is the provider-issued subject of the identity that created it and never changes.
type Account struct {
	ID                string        `json:"id"`
	Email             string        `json:"email"`
	Name              string        `json:"name"`
	PrimaryAuthMethod Provider      `json:"primary_auth_method"`
	LinkedAuthMethods LinkedMethods `json:"linked_auth_methods"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// New builds a fresh account whose linked set holds only the primary method.
func New(id, email, name string, primary Provider, now time.Time) Account {
	now = now.UTC()
	return Account{
		ID:                id,
		Email:             NormalizeEmail(email),
		Name:              name,
		PrimaryAuthMethod: primary,
		LinkedAuthMethods: NewLinkedMethods(primary),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// HasMethod reports whether p is the primary method or already linked.
func (a Account) HasMethod(p Provider) bool {
	return a.PrimaryAuthMethod == p || a.LinkedAuthMethods.Contains(p)
}

// IsPrimary reports whether p created the account.
func (a Account) IsPrimary(p Provider) bool { return a.PrimaryAuthMethod == p }

// NormalizeEmail returns the comparison form of an email address.
// All lookups and writes go through it so "Bob@X.com " and "bob@x.com" resolve to one account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
