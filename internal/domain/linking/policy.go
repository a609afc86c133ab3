package linking

import (
	"fmt"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
)

// Decide evaluates the linking rules for an attempt by requesting against acct
// (nil when no account exists for the email). Rules are checked in order and the
// first match wins:
//
//  1. no account: create on registration, block on login
//  2. requesting is the primary method: block on registration, allow on login
//  3. requesting is already linked
//  4. Email primary, Google/Facebook requesting: autolink
//  5. Google/Facebook primary, the other social provider requesting: autolink
//  6. Google/Facebook primary, Email requesting: block
//  7. anything else: block
func Decide(acct *account.Account, requesting account.Provider, phase Phase) Decision {
	if acct == nil {
		return decideAbsent(requesting, phase)
	}

	d := Decision{
		AccountID:     acct.ID,
		Provider:      requesting,
		PrimaryMethod: acct.PrimaryAuthMethod,
	}
	primary := acct.PrimaryAuthMethod

	switch {
	case requesting == primary:
		if phase == PhaseRegistration {
			return block(d, ReasonAccountExists, existsMessage(primary))
		}
		d.Action, d.Reason = ActionAllowPrimary, ReasonPrimaryMethod
	case acct.LinkedAuthMethods.Contains(requesting):
		d.Action, d.Reason = ActionAllowLinked, ReasonLinkedMethod
	case primary == account.ProviderEmail && requesting.IsSocial():
		d.Action, d.Reason, d.ShouldLinkMethod = ActionAllowAutolink, ReasonSocialLinkToEmail, true
	case primary.IsSocial() && requesting.IsSocial():
		d.Action, d.Reason, d.ShouldLinkMethod = ActionAllowAutolink, ReasonSocialLinkToSocial, true
	case primary.IsSocial() && requesting == account.ProviderEmail:
		return block(d, ReasonPasswordDisabled, fmt.Sprintf(
			"Email/password login is disabled for this account. Please sign in with %s.", primary))
	default:
		return block(d, ReasonUnresolved, fmt.Sprintf(
			"Cannot sign in with %s. Please sign in with %s.", requesting, primary))
	}
	return d
}

func decideAbsent(requesting account.Provider, phase Phase) Decision {
	d := Decision{Provider: requesting, PrimaryMethod: requesting}
	if phase == PhaseRegistration {
		d.Action, d.Reason = ActionCreate, ReasonNewAccount
		return d
	}
	return block(d, ReasonNoAccount, "No account exists for this email address. Please sign up first.")
}

func block(d Decision, reason Reason, msg string) Decision {
	d.Action = ActionBlock
	d.Reason = reason
	d.Message = msg
	d.ShouldLinkMethod = false
	return d
}

func existsMessage(primary account.Provider) string {
	if primary == account.ProviderEmail {
		return "Email/password account already exists for this email address"
	}
	return fmt.Sprintf("An account already exists for this email address. Please sign in with %s.", primary)
}
