package service

import (
	"context"
	"errors"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// AccountResolver finds the account that owns an email address.
type AccountResolver struct {
	store ports.AccountStore
}

// NewAccountResolver constructs an AccountResolver.
func NewAccountResolver(store ports.AccountStore) *AccountResolver {
	if store == nil {
		panic("AccountStore is required")
	}
	return &AccountResolver{store: store}
}

// Resolve returns the account for email, or nil when none exists.
// Store failures are returned as transport errors and are never retried here.
func (r *AccountResolver) Resolve(ctx context.Context, email string) (*account.Account, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "email attribute is required")
	}
	acct, err := r.store.FindByEmail(ctx, email)
	if errors.Is(err, ports.ErrAccountNotFound) {
		return nil, nil //nolint:nilnil // absence is a valid result
	}
	if err != nil {
		return nil, asTransport(err, "find account by email")
	}
	return acct, nil
}

// asTransport keeps classified application errors as they are and marks anything
// else coming out of a port as a transport failure.
func asTransport(err error, op string) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	return apperrors.Transport(err, op)
}
