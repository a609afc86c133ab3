// Package devseed loads a small set of demo accounts so every linking rule can be
// exercised against a local stack.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// Fixture is one seeded account plus the extra methods linked after creation.
type Fixture struct {
	Account account.Account
	Linked  []account.Provider
}

// Fixtures returns the demo accounts stamped at now.
func Fixtures(now time.Time) []Fixture {
	return []Fixture{
		{Account: account.New("dev-email-1", "alice@example.com", "Alice", account.ProviderEmail, now)},
		{
			Account: account.New("dev-email-2", "bob@example.com", "Bob", account.ProviderEmail, now),
			Linked:  []account.Provider{account.ProviderGoogle},
		},
		{Account: account.New("dev-google-1", "carol@example.com", "Carol", account.ProviderGoogle, now)},
		{
			Account: account.New("dev-facebook-1", "dave@example.com", "Dave", account.ProviderFacebook, now),
			Linked:  []account.Provider{account.ProviderGoogle},
		},
	}
}

// Run seeds Fixtures into store. Existing accounts are left untouched; linked
// methods are re-applied, which is a no-op when already present.
func Run(ctx context.Context, store ports.AccountStore, logger *slog.Logger, now time.Time) error {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	for _, f := range Fixtures(now) {
		created, err := seedAccount(ctx, store, f, now)
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed account", "email", f.Account.Email, "error", err)
			failures++
			continue
		}
		msg := "account already exists"
		if created {
			msg = "created account"
		}
		logger.InfoContext(ctx, msg, "email", f.Account.Email, "primary", f.Account.PrimaryAuthMethod)
	}
	if failures > 0 {
		return fmt.Errorf("seeding finished with %d failures", failures)
	}
	return nil
}

func seedAccount(ctx context.Context, store ports.AccountStore, f Fixture, now time.Time) (bool, error) {
	created := true
	if err := store.CreateIfAbsent(ctx, f.Account); err != nil {
		if !errors.Is(err, ports.ErrAccountExists) {
			return false, err
		}
		created = false
	}
	for _, p := range f.Linked {
		if _, err := store.AddLinkedMethod(ctx, f.Account.ID, p, now); err != nil {
			return created, fmt.Errorf("link %s: %w", p, err)
		}
	}
	return created, nil
}
