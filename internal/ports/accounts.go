package ports

// Package ports defines interfaces (hexagonal ports) for the account-linking core.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
)

var (
	// ErrAccountNotFound is returned by AccountStore reads when no record matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by CreateIfAbsent when the id or the email is already taken.
	ErrAccountExists = errors.New("account already exists")
)

// AccountStore persists accounts. Implementations wrap connectivity failures with
// errors.Transport so callers can tell them apart from the sentinels above.
type AccountStore interface {
	// FindByEmail looks up the account owning a normalized email.
	FindByEmail(ctx context.Context, email string) (*account.Account, error)

	// GetByID reads an account by its immutable id.
	GetByID(ctx context.Context, id string) (*account.Account, error)

	// CreateIfAbsent inserts acct atomically. A concurrent or earlier insert for the same
	// id or email yields ErrAccountExists and leaves the stored record untouched.
	CreateIfAbsent(ctx context.Context, acct account.Account) error

	// AddLinkedMethod adds p to the account's linked set and sets updatedAt to at.
	// Adding a method that is already present leaves the set unchanged.
	// Returns the stored account after the update, or ErrAccountNotFound.
	AddLinkedMethod(ctx context.Context, id string, p account.Provider, at time.Time) (*account.Account, error)
}
