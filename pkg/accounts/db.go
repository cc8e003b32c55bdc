// Package accounts stores the accounts the local runtime executes against.
package accounts

import (
	"github.com/fortiblox/x1-mint/pkg/types"
)

// AccountsDB defines the interface for account storage.
type AccountsDB interface {
	// Get retrieves an account by pubkey.
	// Returns nil, nil if account does not exist.
	Get(pubkey types.Pubkey) (*types.Account, error)

	// Set stores an account.
	Set(pubkey types.Pubkey, account *types.Account) error

	// Delete removes an account. Deleting a missing account is not an error.
	Delete(pubkey types.Pubkey) error

	// Has returns true if the account exists.
	Has(pubkey types.Pubkey) bool

	// Count returns the total number of accounts.
	Count() uint64

	// ForEach calls fn for every stored account in ascending pubkey order
	// and stops at the first error fn returns.
	ForEach(fn func(pubkey types.Pubkey, account *types.Account) error) error

	// Close closes the database.
	Close() error
}

// Open opens the store for the given backend name ("memory" or "badger").
// path is only used by persistent backends.
func Open(backend, path string) (AccountsDB, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryDB(), nil
	case BackendBadger:
		return NewBadgerDB(path)
	default:
		return nil, ErrUnknownBackend
	}
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)
