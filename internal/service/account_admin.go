package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// AccountAdminService exposes operator actions on stored accounts.
type AccountAdminService struct {
	store ports.AccountStore
	now   func() time.Time
}

// NewAccountAdminService constructs an AccountAdminService.
func NewAccountAdminService(store ports.AccountStore) *AccountAdminService {
	if store == nil {
		panic("AccountStore is required")
	}
	return &AccountAdminService{store: store, now: time.Now}
}

// GetByEmail returns the account for email or a NotFound error.
func (s *AccountAdminService) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.mapErr(err, "find account by email")
	}
	return acct, nil
}

// GetByID returns the account with id or a NotFound error.
func (s *AccountAdminService) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.ValidationField("id", "id is required")
	}
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "get account")
	}
	return acct, nil
}

// LinkMethod adds p to the account's linked set. Linking an already linked method is a no-op.
func (s *AccountAdminService) LinkMethod(ctx context.Context, id string, p account.Provider) (*account.Account, error) {
	if !p.Valid() {
		return nil, apperrors.ValidationField("provider", "unknown auth provider")
	}
	acct, err := s.store.AddLinkedMethod(ctx, id, p, s.now())
	if err != nil {
		return nil, s.mapErr(err, "add linked method")
	}
	return acct, nil
}

func (s *AccountAdminService) mapErr(err error, op string) error {
	if errors.Is(err, ports.ErrAccountNotFound) {
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "account not found")
	}
	return fmt.Errorf("%s: %w", op, asTransport(err, op))
}
