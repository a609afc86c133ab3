// Package linking holds the decision table that maps an authentication attempt
// onto an existing account. Everything here is pure: no I/O, no clocks.
package linking

import (
	"fmt"
	"strings"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
)

// Phase is the lifecycle stage an attempt is evaluated in.
type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseLogin        Phase = "login"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool { return p == PhaseRegistration || p == PhaseLogin }

// ParsePhase accepts "registration"/"signup" and "login"/"signin", case-insensitively.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registration", "signup", "sign-up":
		return PhaseRegistration, nil
	case "login", "signin", "sign-in":
		return PhaseLogin, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// Action is the outcome of Decide.
type Action string

const (
	ActionCreate        Action = "create"
	ActionAllowPrimary  Action = "allow-primary"
	ActionAllowLinked   Action = "allow-linked"
	ActionAllowAutolink Action = "allow-autolink"
	ActionBlock         Action = "block"
)

// Reason is a stable machine-readable code for why Decide chose an action.
type Reason string

const (
	ReasonNewAccount         Reason = "new_account"
	ReasonNoAccount          Reason = "no_account"
	ReasonAccountExists      Reason = "account_exists"
	ReasonPrimaryMethod      Reason = "primary_method"
	ReasonLinkedMethod       Reason = "linked_method"
	ReasonSocialLinkToEmail  Reason = "social_link_to_email"
	ReasonSocialLinkToSocial Reason = "social_link_to_social"
	ReasonPasswordDisabled   Reason = "password_disabled"
	ReasonUnresolved         Reason = "unresolved"
)

// Decision is the result of evaluating one attempt.
type Decision struct {
	Action Action `json:"action"`
	Reason Reason `json:"reason"`
	// AccountID is empty for ActionCreate and for blocks without an account.
	AccountID string `json:"account_id,omitempty"`
	// Provider is the requesting method.
	Provider account.Provider `json:"provider"`
	// PrimaryMethod is the account's primary method, or the requesting method for ActionCreate.
	PrimaryMethod account.Provider `json:"primary_method"`
	// ShouldLinkMethod is true when Provider must be added to the account's linked set.
	ShouldLinkMethod bool `json:"should_link_method"`
	// Message is the user-facing explanation for a block.
	Message string `json:"message,omitempty"`
}

// Allowed reports whether the attempt may proceed.
func (d Decision) Allowed() bool { return d.Action != ActionBlock }

// Blocked reports whether the attempt must be rejected.
func (d Decision) Blocked() bool { return d.Action == ActionBlock }

// Err returns a *BlockError for blocked decisions and nil otherwise.
func (d Decision) Err() error {
	if !d.Blocked() {
		return nil
	}
	return &BlockError{Reason: d.Reason, Message: d.Message, AccountID: d.AccountID}
}

// BlockError is the policy rejection surfaced to the user.
type BlockError struct {
	Reason    Reason
	Message   string
	AccountID string
}

func (e *BlockError) Error() string { return e.Message }
