// Package mocks provides gomock implementations of the account-linking ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockAccountStore(ctrl)
//	store.EXPECT().FindByEmail(gomock.Any(), "a@b.c").Return(nil, ports.ErrAccountNotFound)
package mocks

// Generate mock for AccountStore interface from internal/ports package.
// This creates MockAccountStore with methods for all AccountStore interface methods:
// FindByEmail, GetByID, CreateIfAbsent, AddLinkedMethod
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=account_store_mock.go github.com/Kyoronginus/accountlink/internal/ports AccountStore

// Generate mock for IdentityProvider interface from internal/ports package.
// This creates MockIdentityProvider with methods for all IdentityProvider interface methods:
// UpdateUserAttributes, LinkProviderIdentity
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=identity_provider_mock.go github.com/Kyoronginus/accountlink/internal/ports IdentityProvider
